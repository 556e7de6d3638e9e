// Package params encodes query and form parameters, including the
// repeat/indexed/array multi-value styles and nested-key flattening.
package params
