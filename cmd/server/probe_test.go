package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/authfence/pkg/authfence"
)

func TestProbe_StopsAtLimit(t *testing.T) {
	deps := newTestDeps(t, authfence.WithPolicy(authfence.PurposeLogin, 3, time.Minute))
	srv := httptest.NewServer(newRouter(deps))
	defer srv.Close()

	var out bytes.Buffer
	err := runProbe(&out, srv.Client(), probeOptions{
		url:     srv.URL + "/",
		purpose: authfence.PurposeLogin,
		count:   5,
	})
	require.NoError(t, err)

	output := out.String()
	assert.Equal(t, 3, strings.Count(output, "ALLOWED"))
	assert.Equal(t, 2, strings.Count(output, "BLOCKED"))
	assert.Contains(t, output, "retry after 60000ms")
	assert.Contains(t, output, "allowed=3 blocked=2")
}

func TestProbe_ServiceError(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestDeps(t)))
	defer srv.Close()

	var out bytes.Buffer
	err := runProbe(&out, srv.Client(), probeOptions{
		url:     srv.URL,
		purpose: "checkout",
		count:   1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_purpose")
}

func TestProbeCmd_RejectsZeroCount(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"probe", "--count", "0"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	err := runProbe(&out, &http.Client{Timeout: time.Second}, probeOptions{url: url, purpose: "login", count: 1})
	assert.Error(t, err)
}
