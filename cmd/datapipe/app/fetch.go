package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivanehh/datapipe"
	"github.com/ivanehh/datapipe/pkg/auth"
	"github.com/ivanehh/datapipe/pkg/backup"
	"github.com/ivanehh/datapipe/pkg/config"
	"github.com/ivanehh/datapipe/pkg/fetcher"
	"github.com/ivanehh/datapipe/pkg/files"
	"github.com/ivanehh/datapipe/pkg/logging"
	"github.com/ivanehh/datapipe/pkg/netcom"
	"github.com/ivanehh/datapipe/pkg/processor"
)

var errIncompletePipeline = errors.New("incomplete pipeline configuration")

type fetchFlags struct {
	configs      []string
	baseURL      string
	endpoint     string
	token        string
	authEndpoint string
	tokenField   string
	credentials  map[string]string
	params       map[string]string
	outputs      []string
	extract      string
	flatten      bool
	backup       bool
	logDir       string
	logLevel     string
	timeout      time.Duration
}

func newFetchCmd() *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch an endpoint and store the result",
		Long: `Fetch {base-url}/{endpoint} with a bearer token and write the result to every --out path.

Settings come from the --config files first; flags given on the command line override them.
The output format is picked from each path's suffix (json, csv, yaml, toml, sqlite, ...).

Examples:
  datapipe fetch --base-url https://api.example.com --endpoint items --token abc --out items.json
  datapipe fetch --config pipeline.yaml --param page=2 --out page2.csv --backup`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.pipeline(cmd)
			if err != nil {
				return err
			}
			return runFetch(cmd, p)
		},
	}

	cmd.Flags().StringSliceVar(&f.configs, "config", nil, "Configuration file; repeat to merge several")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL of the API")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Endpoint path below the base URL")
	cmd.Flags().StringVar(&f.token, "token", "", "Fixed bearer token")
	cmd.Flags().StringVar(&f.authEndpoint, "auth-endpoint", "", "URL that issues tokens for --credential")
	cmd.Flags().StringVar(&f.tokenField, "token-field", "", "JSON field of the token in the auth response")
	cmd.Flags().StringToStringVar(&f.credentials, "credential", nil, "Credential posted to the auth endpoint (key=value)")
	cmd.Flags().StringToStringVar(&f.params, "param", nil, "Query parameter (key=value)")
	cmd.Flags().StringSliceVar(&f.outputs, "out", nil, "Destination file; repeat for several")
	cmd.Flags().StringVar(&f.extract, "extract", "", "Keep only the value at this gjson path")
	cmd.Flags().BoolVar(&f.flatten, "flatten", false, "Flatten nested objects into dotted keys")
	cmd.Flags().BoolVar(&f.backup, "backup", false, "Archive existing destinations before overwriting them")
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "Directory for json log files")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", netcom.DefaultTimeout, "Timeout of every HTTP request")
	cmd.MarkFlagsMutuallyExclusive("token", "auth-endpoint")
	return cmd
}

// pipeline merges the config files with the flags that were set explicitly
func (f *fetchFlags) pipeline(cmd *cobra.Command) (config.Pipeline, error) {
	var p config.Pipeline
	if len(f.configs) > 0 {
		l, err := loadConfig(f.configs)
		if err != nil {
			return p, err
		}
		if p, err = config.DecodeAs[config.Pipeline](l); err != nil {
			return p, err
		}
	}

	set := cmd.Flags().Changed
	if set("base-url") {
		p.BaseURL = f.baseURL
	}
	if set("endpoint") {
		p.Endpoint = f.endpoint
	}
	if set("token") {
		p.Token, p.AuthEndpoint = f.token, ""
	}
	if set("auth-endpoint") {
		p.AuthEndpoint, p.Token = f.authEndpoint, ""
	}
	if set("token-field") {
		p.TokenField = f.tokenField
	}
	if set("credential") {
		p.Credentials = f.credentials
	}
	if set("param") {
		if p.Params == nil {
			p.Params = make(map[string]string, len(f.params))
		}
		for k, v := range f.params {
			p.Params[k] = v
		}
	}
	if set("out") {
		p.Outputs = f.outputs
	}
	if set("extract") {
		p.Extract = f.extract
	}
	if set("flatten") {
		p.Flatten = f.flatten
	}
	if set("backup") {
		p.Backup = f.backup
	}
	if set("log-dir") {
		p.Log.Folder = f.logDir
	}
	if set("log-level") {
		p.Log.Level = f.logLevel
	}
	if set("timeout") || p.Timeout <= 0 {
		p.Timeout = f.timeout
	}

	switch {
	case p.BaseURL == "":
		return p, fmt.Errorf("%w: base url is required", errIncompletePipeline)
	case p.Endpoint == "":
		return p, fmt.Errorf("%w: endpoint is required", errIncompletePipeline)
	case len(p.Outputs) == 0:
		return p, fmt.Errorf("%w: at least one output is required", errIncompletePipeline)
	case p.Token == "" && p.AuthEndpoint == "":
		return p, fmt.Errorf("%w: a token or an auth endpoint is required", errIncompletePipeline)
	}
	return p, nil
}

func runFetch(cmd *cobra.Command, p config.Pipeline) error {
	log := logging.New("datapipe", p.Log,
		logging.WithConsole(cmd.ErrOrStderr()),
		logging.WithPipeline(p.Endpoint, p.BaseURL),
	)
	defer log.Close()

	client := netcom.NewClient(netcom.WithTimeout(p.Timeout))
	opts := []fetcher.Option{
		fetcher.WithClient(client),
		fetcher.WithFactory(files.Extended()),
		fetcher.WithLogger(log),
	}
	if p.Backup {
		opts = append(opts, fetcher.WithBackup(backup.New(backup.WithLogger(log))))
	}
	f := fetcher.New(authFor(p, client, log), processorFor(p), opts...)

	params := url.Values{}
	for k, v := range p.Params {
		params.Set(k, v)
	}
	if _, err := f.FetchAndStore(cmd.Context(), p.BaseURL, p.Endpoint, params, p.Outputs...); err != nil {
		return err
	}
	for _, out := range p.Outputs {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}
	return nil
}

func authFor(p config.Pipeline, client *netcom.Client, log *logging.Logger) datapipe.AuthStrategy {
	if p.Token != "" {
		return auth.NewManualToken(p.Token)
	}
	opts := []auth.EndpointOption{auth.WithClient(client), auth.WithLogger(log)}
	if p.TokenField != "" {
		opts = append(opts, auth.WithTokenField(p.TokenField))
	}
	// one token per run; the endpoint strategy alone would post the credentials twice per fetch
	return auth.NewCached(auth.NewEndpointToken(p.AuthEndpoint, p.Credentials, opts...))
}

func processorFor(p config.Pipeline) datapipe.ResponseProcessor {
	var chain processor.Chain
	if p.Extract != "" {
		chain = append(chain, processor.NewFieldExtractor(p.Extract))
	}
	if p.Flatten {
		chain = append(chain, processor.Flattener{})
	}
	if len(chain) == 0 {
		return processor.JSON{}
	}
	return chain
}
