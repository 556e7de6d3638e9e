package courier

// Status predicates over the standard half-open ranges.

// Success reports whether status is in [200,300).
func Success(status int) bool { return status >= 200 && status < 300 }

// Redirect reports whether status is in [300,400).
func Redirect(status int) bool { return status >= 300 && status < 400 }

// ClientError reports whether status is in [400,500).
func ClientError(status int) bool { return status >= 400 && status < 500 }

// ServerError reports whether status is in [500,600).
func ServerError(status int) bool { return status >= 500 && status < 600 }

// Conflict reports whether status is exactly 409.
func Conflict(status int) bool { return status == 409 }

// Unexceptional reports whether status is in [200,400), the range the
// exception wrapper lets pass.
func Unexceptional(status int) bool { return status >= 200 && status < 400 }
