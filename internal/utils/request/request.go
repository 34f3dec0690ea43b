package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout is applied to every outbound HTTP call.
const DefaultTimeout = 10 * time.Second

// Request is the shared client for simple outbound calls.
var Request = New(DefaultTimeout, 0)

// New builds a resty client honouring HTTP(S)_PROXY.
func New(timeout time.Duration, retries int) *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).
		SetTimeout(timeout).
		SetRetryCount(retries)
}
