package request

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// New builds the resty client shared by exchange adapters. Requests are never
// retried; a failed call is reported to the caller as is.
func New(timeout time.Duration, proxy string) (*resty.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return resty.New().
		SetTransport(transport).
		SetTimeout(timeout).
		SetRetryCount(0), nil
}
