package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

type httpProbe struct {
	cfg *config.HTTPProbe
}

// Run performs the request against the run-wide client, following redirects.
// The response body is decoded as UTF-8 with replacement of invalid bytes.
func (p *httpProbe) Run(ctx context.Context, rt *Runtime) (string, error) {
	target, err := url.Parse(p.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", p.cfg.URL, err)
	}

	req := rt.clientFor(p.cfg.VerifySSL).R().SetContext(ctx)

	if len(p.cfg.Headers) > 0 {
		req.SetHeaders(p.cfg.Headers)
	}
	if p.cfg.User != "" {
		req.SetBasicAuth(p.cfg.User, p.cfg.Pass)
	}

	// The jar is attached manually so Set-Cookie headers are only installed
	// when the step opted in with save_cookies.
	if cookies := rt.jar.Cookies(target); len(cookies) > 0 {
		req.SetCookies(cookies)
	}

	hasPayload := false
	switch {
	case len(p.cfg.Form) > 0:
		req.SetFormData(p.cfg.Form)
		hasPayload = true
	case len(p.cfg.Multipart) > 0:
		for field, entry := range p.cfg.Multipart {
			if entry.FilePath != "" {
				req.SetFile(field, entry.FilePath)
			} else {
				req.SetMultipartFormData(map[string]string{field: entry.Value})
			}
		}
		hasPayload = true
	case p.cfg.BodySet():
		req.SetBody(p.cfg.Body)
		hasPayload = true
	}

	resp, err := req.Execute(p.method(hasPayload), p.cfg.URL)
	if err != nil {
		return "", err
	}

	if p.cfg.SaveCookies {
		rt.jar.SetCookies(target, resp.Cookies())
	}

	if resp.StatusCode() != p.cfg.Status {
		return "", fmt.Errorf("status code %d", resp.StatusCode())
	}

	if !p.cfg.GetOutput {
		return "", nil
	}

	return strings.ToValidUTF8(string(resp.Body()), "�"), nil
}

func (p *httpProbe) method(hasPayload bool) string {
	if p.cfg.Method != "" {
		return strings.ToUpper(p.cfg.Method)
	}
	if hasPayload {
		return resty.MethodPost
	}
	return resty.MethodGet
}
