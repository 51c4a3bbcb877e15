package probe

import (
	"crypto/tls"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const defaultHTTPTimeout = 30 * time.Second

// ResultLookup resolves the recorded output of an already-completed step.
// The scheduler guarantees a step-reference probe only runs after its
// referent passed.
type ResultLookup interface {
	OutputOf(name string) (string, bool)
}

// Runtime carries the run-scoped shared resources probes need: the HTTP
// clients (one verifying, one not, both pooling connections), the cookie jar,
// and the lookup for step-reference probes. Construct one per run and drop it
// when the run ends.
type Runtime struct {
	client   *resty.Client
	insecure *resty.Client
	jar      *cookiejar.Jar
	results  ResultLookup
	logger   zerolog.Logger
}

// NewRuntime builds the shared probe runtime for a single run.
func NewRuntime(results ResultLookup, logger zerolog.Logger) (*Runtime, error) {
	// Cookies are partitioned by registrable domain; the jar serialises
	// concurrent writes internally.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		jar:     jar,
		results: results,
		logger:  logger,
	}

	// resty installs its own jar on every client; disable it so the manual,
	// save_cookies-gated jar above is the only cookie store.
	rt.client = resty.New().
		SetTimeout(defaultHTTPTimeout).
		SetCookieJar(nil)
	rt.insecure = resty.New().
		SetTimeout(defaultHTTPTimeout).
		SetCookieJar(nil).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402 -- verify_ssl: false is an explicit plan opt-out

	return rt, nil
}

func (rt *Runtime) clientFor(verifySSL bool) *resty.Client {
	if verifySSL {
		return rt.client
	}
	return rt.insecure
}
