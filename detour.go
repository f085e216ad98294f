package detour

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ot "github.com/opentracing/opentracing-go"
	"github.com/pires/go-proxyproto"
	log "github.com/sirupsen/logrus"

	"github.com/detourhq/detour/flowid"
	"github.com/detourhq/detour/logging"
	"github.com/detourhq/detour/manifest"
	"github.com/detourhq/detour/metrics"
	"github.com/detourhq/detour/pages"
	"github.com/detourhq/detour/proxy"
	"github.com/detourhq/detour/routing"
	"github.com/detourhq/detour/rules"
)

const (
	// DefaultAddress of the main listener.
	DefaultAddress = ":9090"

	// DefaultShutdownTimeout is the timeout of draining in-flight
	// requests on SIGTERM.
	DefaultShutdownTimeout = 30 * time.Second
)

// Options to start detour. Usually, only a few of the fields need to be set.
type Options struct {

	// Address of the main listener, defaults to :9090.
	Address string

	// SupportListener is the address of the support endpoints (metrics
	// exposition). When empty, no support listener is started.
	SupportListener string

	// RulesFile is the path of the rule configuration, YAML or JSON.
	// When empty, the server starts with an empty rule set.
	RulesFile string

	// PagesDir is the directory of the page files.
	PagesDir string

	// PublicDir is the directory of the static assets.
	PublicDir string

	// DevMode enables polling the rule file for changes and swapping the
	// routing table on updates.
	DevMode bool

	// PollTimeout is the period of polling the rule file in dev mode.
	PollTimeout time.Duration

	// MaxRewrites bounds the rewrite chain, defaults to
	// routing.DefaultMaxRewrites.
	MaxRewrites int

	// ApplicationLogPrefix is prepended to the application log entries.
	ApplicationLogPrefix string

	// ApplicationLogJSONEnabled switches the application log to JSON.
	ApplicationLogJSONEnabled bool

	// AccessLogDisabled turns off the access log.
	AccessLogDisabled bool

	// AccessLogJSONEnabled switches the access log to JSON.
	AccessLogJSONEnabled bool

	// MetricsFlavour selects the metrics backend: codahale, prometheus or
	// all.
	MetricsFlavour string

	// MetricsPrefix for the collected metric keys.
	MetricsPrefix string

	// EnableRuntimeMetrics adds Go runtime metrics to the collection.
	EnableRuntimeMetrics bool

	// FlowID selects the flow id generator: "standard" or "ulid". When
	// empty, inbound requests get no flow id header.
	FlowID string

	// FlowIDLength of standard flow ids.
	FlowIDLength int

	// FlowIDReuse keeps valid inbound flow ids instead of generating new
	// ones.
	FlowIDReuse bool

	// OpenTracer traces the requests, defaults to the noop tracer.
	OpenTracer ot.Tracer

	// EnableProxyProtocol accepts the HA PROXY protocol on the main
	// listener.
	EnableProxyProtocol bool

	// EnableCompression negotiates response compression for locally
	// served content.
	EnableCompression bool

	// CompressMIME overrides the compressible media types.
	CompressMIME []string

	// IdleConnsPerHost of the upstream transport.
	IdleConnsPerHost int

	// CloseIdleConnsPeriod of the upstream transport.
	CloseIdleConnsPeriod time.Duration

	// ResponseHeaderTimeout of the upstream transport.
	ResponseHeaderTimeout time.Duration

	// ShutdownTimeout of draining in-flight requests on SIGTERM.
	ShutdownTimeout time.Duration

	// testListener, when set, overrides the main listener.
	testListener net.Listener

	// testSignals, when set, replaces the process signal channel.
	testSignals chan os.Signal
}

func (o *Options) rulesClient() rules.Client {
	if o.RulesFile == "" {
		return rules.Empty()
	}

	if o.DevMode {
		return rules.Watch(o.RulesFile)
	}

	return rules.Open(o.RulesFile)
}

func (o *Options) flowGenerator() (flowid.Generator, error) {
	switch o.FlowID {
	case "":
		return nil, nil
	case "standard":
		l := o.FlowIDLength
		if l <= 0 {
			l = flowid.DefaultLength
		}

		return flowid.NewStandardGenerator(l)
	case "ulid":
		return flowid.NewULIDGenerator(), nil
	default:
		return nil, fmt.Errorf("invalid flow id generator: %s", o.FlowID)
	}
}

func (o *Options) newRouting() (*routing.Routing, error) {
	registry, err := pages.Scan(pages.Options{Dir: o.PagesDir, PublicDir: o.PublicDir})
	if err != nil {
		return nil, fmt.Errorf("scanning pages: %w", err)
	}

	return routing.New(routing.Options{
		Client:      o.rulesClient(),
		Pages:       registry,
		PollTimeout: o.PollTimeout,
		Watch:       o.DevMode,
		MaxRewrites: o.MaxRewrites,
	})
}

// BuildManifest compiles the rule configuration and the page registry once
// and emits the route manifest, without starting a server.
func BuildManifest(o Options) (*manifest.Manifest, error) {
	rt, err := o.newRouting()
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	return manifest.Emit(rt.Get()), nil
}

// Run starts the detour server with the given options and blocks until it
// is shut down by SIGTERM or a listener failure.
func Run(o Options) error {
	logging.Init(logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
	})

	m := metrics.Default
	if o.MetricsFlavour != "" {
		m = metrics.New(metrics.Options{
			Flavour:              metrics.Flavour(o.MetricsFlavour),
			Prefix:               o.MetricsPrefix,
			EnableRuntimeMetrics: o.EnableRuntimeMetrics,
		})
	}
	defer m.Close()

	if o.SupportListener != "" {
		mux := http.NewServeMux()
		m.RegisterHandler("/metrics", mux)
		go func() {
			if err := http.ListenAndServe(o.SupportListener, mux); err != nil {
				log.Errorf("support listener failed: %v", err)
			}
		}()
	}

	rt, err := o.newRouting()
	if err != nil {
		return fmt.Errorf("loading the routing table: %w", err)
	}
	defer rt.Close()

	fg, err := o.flowGenerator()
	if err != nil {
		return err
	}

	handler := proxy.WithParams(proxy.Params{
		Routing:               rt,
		Metrics:               m,
		FlowGenerator:         fg,
		FlowReuse:             o.FlowIDReuse,
		OpenTracer:            o.OpenTracer,
		IdleConnsPerHost:      o.IdleConnsPerHost,
		CloseIdleConnsPeriod:  o.CloseIdleConnsPeriod,
		ResponseHeaderTimeout: o.ResponseHeaderTimeout,
		EnableCompression:     o.EnableCompression,
		CompressMIME:          o.CompressMIME,
	})
	defer handler.Close()

	l := o.testListener
	if l == nil {
		address := o.Address
		if address == "" {
			address = DefaultAddress
		}

		l, err = net.Listen("tcp", address)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", address, err)
		}
	}

	if o.EnableProxyProtocol {
		l = &proxyproto.Listener{Listener: l}
	}

	srv := &http.Server{Handler: handler}

	sigs := o.testSignals
	if sigs == nil {
		sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGTERM)
	}

	done := make(chan error, 1)
	go func() {
		<-sigs
		log.Info("shutting down")

		timeout := o.ShutdownTimeout
		if timeout <= 0 {
			timeout = DefaultShutdownTimeout
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		done <- srv.Shutdown(ctx)
	}()

	log.Infof("listening on %v", l.Addr())
	if err := srv.Serve(l); err != http.ErrServerClosed {
		return err
	}

	return <-done
}
