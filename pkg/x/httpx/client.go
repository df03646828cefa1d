package httpx

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// ProxyEnv is consulted when ClientOptions.UseEnvProxy is set.
const ProxyEnv = "ASSISTANTHUB_PROXY"

const DefaultUserAgent = "assistanthub/1.0 (+https://github.com/assistanthub)"

type ClientOptions struct {
	Timeout time.Duration

	// UseEnvProxy applies ASSISTANTHUB_PROXY semantics:
	// - "env": ProxyFromEnvironment
	// - "direct"/"off": no proxy
	// - URL / host:port: fixed proxy (http, https or socks5)
	UseEnvProxy bool

	// Proxy overrides UseEnvProxy when non-empty.
	Proxy string

	CookieJar bool

	// UserAgent is set on requests that don't carry one. Empty means DefaultUserAgent.
	UserAgent string

	// Transport allows providing a pre-configured transport.
	// When nil, it clones http.DefaultTransport.
	Transport *http.Transport
}

func NewClient(opts ClientOptions) (*http.Client, error) {
	var transport *http.Transport
	if opts.Transport != nil {
		transport = opts.Transport.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	proxyRaw := strings.TrimSpace(opts.Proxy)
	if proxyRaw == "" && opts.UseEnvProxy {
		proxyRaw = strings.TrimSpace(os.Getenv(ProxyEnv))
	}
	if proxyRaw != "" {
		if err := applyProxy(transport, proxyRaw); err != nil {
			return nil, err
		}
	} else {
		transport.Proxy = nil // default: no proxy (even if HTTP_PROXY / HTTPS_PROXY is set)
	}

	var jar http.CookieJar
	if opts.CookieJar {
		jar, _ = cookiejar.New(nil)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: transport, userAgent: ua},
		Jar:       jar,
	}, nil
}

func applyProxy(transport *http.Transport, raw string) error {
	proxyFunc, err := ProxyFuncFromString(raw)
	if err != nil {
		return err
	}
	transport.Proxy = proxyFunc
	if proxyFunc != nil {
		return nil
	}

	switch strings.ToLower(raw) {
	case "0", "false", "off", "no", "none", "direct":
		return nil
	}
	u, err := ParseProxyURL(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "socks5" {
		return nil
	}

	var auth *netproxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &netproxy.Auth{User: u.User.Username(), Password: pass}
	}
	dialer, err := netproxy.SOCKS5("tcp", u.Host, auth, netproxy.Direct)
	if err != nil {
		return fmt.Errorf("socks5 proxy %s: %w", u.Host, err)
	}
	cd, ok := dialer.(netproxy.ContextDialer)
	if !ok {
		return fmt.Errorf("socks5 proxy %s: dialer has no DialContext", u.Host)
	}
	transport.DialContext = cd.DialContext
	return nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// Base returns the underlying *http.Transport of a client built by NewClient.
func Base(c *http.Client) (*http.Transport, bool) {
	if c == nil {
		return nil, false
	}
	switch tr := c.Transport.(type) {
	case *userAgentTransport:
		base, ok := tr.base.(*http.Transport)
		return base, ok
	case *http.Transport:
		return tr, true
	}
	return nil, false
}
