package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMaskIP(t *testing.T) {
	assert.Equal(t, "1.2.3.xxx", MaskIP("1.2.3.4"))
	assert.Equal(t, "2001:db8:0:0:xxxx", MaskIP("2001:db8::1"))
	assert.Equal(t, UnknownIP, MaskIP(UnknownIP))
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare header wins", map[string]string{"CF-Connecting-IP": "8.8.8.8", "X-Real-IP": "9.9.9.9"}, "10.0.0.1:1234", "8.8.8.8"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "10.0.0.1:1234", "9.9.9.9"},
		{"first forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.2"}, "10.0.0.1:1234", "1.2.3.4"},
		{"private header ignored", map[string]string{"X-Real-IP": "192.168.1.9"}, "1.1.1.1:80", "1.1.1.1"},
		{"remote addr", nil, "5.6.7.8:4321", "5.6.7.8"},
		{"unresolvable", nil, "garbage", UnknownIP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			c.Request = req
			assert.Equal(t, tc.want, ClientIP(c))
		})
	}
}
