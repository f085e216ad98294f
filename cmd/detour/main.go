/*
This command provides the detour executable.

For the list of command line options, run:

	detour -help

For details about the usage of detour, please see the documentation of the
root detour package.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/detourhq/detour"
)

const (
	defaultAddress              = ":9090"
	defaultPollTimeout          = 3 * time.Second
	defaultApplicationLogPrefix = "[APP]"
	defaultFlowIDLength         = 16

	addressUsage               = "network address that detour should listen on"
	supportListenerUsage       = "network address used for exposing the /metrics endpoint. An empty value disables the support endpoint"
	rulesFileUsage             = "file containing the rule definitions, YAML or JSON"
	pagesDirUsage              = "directory containing the page files"
	publicDirUsage             = "directory containing the static assets"
	devModeUsage               = "enables developer time behavior, like watching the rule file for changes"
	pollTimeoutUsage           = "polling timeout of the rule file in dev mode"
	maxRewritesUsage           = "maximum number of rewrites applied to an incoming request, 0 means the default bound"
	applicationLogPrefixUsage  = "prefix for each application log entry"
	applicationLogJSONUsage    = "when this flag is set, application log entries are printed as JSON"
	accessLogDisabledUsage     = "when this flag is set, no access log is printed"
	accessLogJSONUsage         = "when this flag is set, access log entries are printed as JSON"
	metricsFlavourUsage        = "metrics backend to use: codahale, prometheus or all. An empty value disables metrics"
	metricsPrefixUsage         = "allows setting a custom prefix for the collected metric keys"
	runtimeMetricsUsage        = "enables reporting of the Go runtime statistics"
	flowIDUsage                = "sets the flow id generator for the X-Flow-Id header: standard or ulid. An empty value disables flow ids"
	flowIDLengthUsage          = "length of the generated standard flow ids"
	flowIDReuseUsage           = "keep valid incoming flow ids instead of generating new ones"
	proxyProtocolUsage         = "accept the HA PROXY protocol on the main listener"
	compressionUsage           = "enables negotiated response compression for locally served content"
	idleConnsPerHostUsage      = "maximum idle connections per upstream host"
	closeIdleConnsUsage        = "period of closing the idle upstream connections, negative values disable it"
	responseHeaderTimeoutUsage = "timeout for the upstream response headers"
	printManifestUsage         = "print the route manifest as JSON to stdout and exit"
	versionUsage               = "print detour version"
)

var (
	version string
	commit  string

	address               string
	supportListener       string
	rulesFile             string
	pagesDir              string
	publicDir             string
	devMode               bool
	pollTimeout           time.Duration
	maxRewrites           int
	applicationLogPrefix  string
	applicationLogJSON    bool
	accessLogDisabled     bool
	accessLogJSON         bool
	metricsFlavour        string
	metricsPrefix         string
	runtimeMetrics        bool
	flowID                string
	flowIDLength          int
	flowIDReuse           bool
	proxyProtocol         bool
	compression           bool
	idleConnsPerHost      int
	closeIdleConnsPeriod  time.Duration
	responseHeaderTimeout time.Duration
	printManifest         bool
	printVersion          bool
)

func init() {
	flag.StringVar(&address, "address", defaultAddress, addressUsage)
	flag.StringVar(&supportListener, "support-listener", "", supportListenerUsage)
	flag.StringVar(&rulesFile, "rules-file", "", rulesFileUsage)
	flag.StringVar(&pagesDir, "pages-dir", "", pagesDirUsage)
	flag.StringVar(&publicDir, "public-dir", "", publicDirUsage)
	flag.BoolVar(&devMode, "dev-mode", false, devModeUsage)
	flag.DurationVar(&pollTimeout, "poll-timeout", defaultPollTimeout, pollTimeoutUsage)
	flag.IntVar(&maxRewrites, "max-rewrites", 0, maxRewritesUsage)
	flag.StringVar(&applicationLogPrefix, "application-log-prefix", defaultApplicationLogPrefix, applicationLogPrefixUsage)
	flag.BoolVar(&applicationLogJSON, "application-log-json-enabled", false, applicationLogJSONUsage)
	flag.BoolVar(&accessLogDisabled, "access-log-disabled", false, accessLogDisabledUsage)
	flag.BoolVar(&accessLogJSON, "access-log-json-enabled", false, accessLogJSONUsage)
	flag.StringVar(&metricsFlavour, "metrics-flavour", "", metricsFlavourUsage)
	flag.StringVar(&metricsPrefix, "metrics-prefix", "detour.", metricsPrefixUsage)
	flag.BoolVar(&runtimeMetrics, "runtime-metrics", false, runtimeMetricsUsage)
	flag.StringVar(&flowID, "flow-id", "", flowIDUsage)
	flag.IntVar(&flowIDLength, "flow-id-length", defaultFlowIDLength, flowIDLengthUsage)
	flag.BoolVar(&flowIDReuse, "flow-id-reuse", false, flowIDReuseUsage)
	flag.BoolVar(&proxyProtocol, "proxy-protocol", false, proxyProtocolUsage)
	flag.BoolVar(&compression, "compression", false, compressionUsage)
	flag.IntVar(&idleConnsPerHost, "idle-conns-num", 0, idleConnsPerHostUsage)
	flag.DurationVar(&closeIdleConnsPeriod, "close-idle-conns-period", 0, closeIdleConnsUsage)
	flag.DurationVar(&responseHeaderTimeout, "response-header-timeout", 0, responseHeaderTimeoutUsage)
	flag.BoolVar(&printManifest, "print-manifest", false, printManifestUsage)
	flag.BoolVar(&printVersion, "version", false, versionUsage)
	flag.Parse()
}

func options() detour.Options {
	return detour.Options{
		Address:                   address,
		SupportListener:           supportListener,
		RulesFile:                 rulesFile,
		PagesDir:                  pagesDir,
		PublicDir:                 publicDir,
		DevMode:                   devMode,
		PollTimeout:               pollTimeout,
		MaxRewrites:               maxRewrites,
		ApplicationLogPrefix:      applicationLogPrefix,
		ApplicationLogJSONEnabled: applicationLogJSON,
		AccessLogDisabled:         accessLogDisabled,
		AccessLogJSONEnabled:      accessLogJSON,
		MetricsFlavour:            metricsFlavour,
		MetricsPrefix:             metricsPrefix,
		EnableRuntimeMetrics:      runtimeMetrics,
		FlowID:                    flowID,
		FlowIDLength:              flowIDLength,
		FlowIDReuse:               flowIDReuse,
		EnableProxyProtocol:       proxyProtocol,
		EnableCompression:         compression,
		IdleConnsPerHost:          idleConnsPerHost,
		CloseIdleConnsPeriod:      closeIdleConnsPeriod,
		ResponseHeaderTimeout:     responseHeaderTimeout,
	}
}

func emitManifest(o detour.Options) error {
	m, err := detour.BuildManifest(o)
	if err != nil {
		return err
	}

	if _, err := m.WriteTo(os.Stdout); err != nil {
		return err
	}

	if err := m.Fprint(os.Stderr); err != nil {
		return err
	}

	sum, err := m.Checksum()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "checksum:", sum)
	return nil
}

func main() {
	if printVersion {
		fmt.Printf("detour version %s (commit: %s)\n", version, commit)
		return
	}

	o := options()
	if printManifest {
		if err := emitManifest(o); err != nil {
			log.Fatal(err)
		}

		return
	}

	log.Fatal(detour.Run(o))
}
