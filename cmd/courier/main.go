// Command courier issues one HTTP request described by flags and an
// optional profile file, and prints the coerced response.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	courier "github.com/corvid-labs/courier"
	"github.com/corvid-labs/courier/config"
	"github.com/corvid-labs/courier/pool"
)

type options struct {
	profile     string
	method      string
	headers     []string
	data        string
	contentType string
	accept      string
	as          string
	timeout     time.Duration
	insecure    bool
	async       bool
	usePool     bool
	quiet       bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "courier [flags] URL",
		Short:         "Send one HTTP request through the courier pipeline",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var url string
			if len(args) == 1 {
				url = args[0]
			}
			return run(cmd, url, opts)
		},
	}

	bindFlags(cmd.Flags(), opts)
	return cmd
}

func bindFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.profile, "profile", "", "YAML profile file with request defaults")
	flags.StringVarP(&opts.method, "method", "X", "", "HTTP method")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "header in 'Name: value' form (repeatable)")
	flags.StringVarP(&opts.data, "data", "d", "", "request body")
	flags.StringVar(&opts.contentType, "content-type", "", "content-type tag or MIME type")
	flags.StringVar(&opts.accept, "accept", "", "accept tag or MIME type")
	flags.StringVar(&opts.as, "as", "auto", "response coercion: auto, json, edn, text, byte-array, stream")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "whole-request timeout")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "skip TLS certificate verification")
	flags.BoolVar(&opts.async, "async", false, "execute through the continuation-pair mode")
	flags.BoolVar(&opts.usePool, "pool", false, "route through a scoped connection manager")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "print only the body")
}

func run(cmd *cobra.Command, url string, opts *options) error {
	profile, err := config.Load(opts.profile)
	if err != nil {
		return err
	}
	req, err := profile.Request()
	if err != nil {
		return err
	}

	if url != "" {
		req.URL = url
	}
	if opts.method != "" {
		req.Method = strings.ToUpper(opts.method)
	}
	if opts.data != "" {
		req.Body = opts.data
	}
	if opts.contentType != "" {
		req.ContentType = opts.contentType
	}
	if opts.accept != "" {
		req.Accept = opts.accept
	}
	req.As = opts.as
	if opts.timeout > 0 {
		req.Timeout = opts.timeout
	}
	if opts.insecure {
		req.Insecure = true
	}
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q: expected 'Name: value'", h)
		}
		req.Header().Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	execute := func(ctx context.Context) error {
		resp, err := send(ctx, req, opts.async)
		if err != nil {
			return err
		}
		return print(cmd, resp, opts.quiet)
	}

	if opts.usePool {
		poolOpts, ok := profile.PoolOptions()
		if !ok {
			poolOpts = pool.Options{Timeout: opts.timeout, Insecure: opts.insecure}
		}
		return pool.With(ctx, poolOpts, execute)
	}
	return execute(ctx)
}

func send(ctx context.Context, req *courier.Request, async bool) (*courier.Response, error) {
	if !async {
		return courier.Do(ctx, req)
	}

	var (
		wg   sync.WaitGroup
		resp *courier.Response
		err  error
	)
	wg.Add(1)
	callErr := courier.DoAsync(ctx, req,
		func(r *courier.Response) {
			resp = r
			wg.Done()
		},
		func(e error) {
			err = e
			wg.Done()
		})
	if callErr != nil {
		return nil, callErr
	}
	wg.Wait()
	return resp, err
}

func print(cmd *cobra.Command, resp *courier.Response, quiet bool) error {
	if resp == nil {
		return nil
	}
	out := cmd.OutOrStdout()
	if !quiet {
		fmt.Fprintf(out, "%s %d %s (%s)\n",
			resp.ProtocolVersion.Name, resp.Status, resp.ReasonPhrase, resp.RequestTime.Round(time.Millisecond))
		for _, key := range sortedHeaderKeys(resp) {
			for _, v := range resp.Headers[key] {
				fmt.Fprintf(out, "%s: %s\n", key, v)
			}
		}
		fmt.Fprintln(out)
	}
	switch body := resp.Body.(type) {
	case nil:
	case string:
		fmt.Fprintln(out, body)
	case []byte:
		out.Write(body)
	default:
		fmt.Fprintf(out, "%v\n", body)
	}
	return nil
}

func sortedHeaderKeys(resp *courier.Response) []string {
	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
