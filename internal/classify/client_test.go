package classify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
)

const statusResponse = `{
	"ok": true,
	"category": "Productive",
	"probability": 0.87,
	"reply_pt": "Olá, recebemos sua solicitação.",
	"reply_en": "",
	"reply_lang_default": "pt",
	"explanation": {"intent": "STATUS", "language": "pt", "top_features": ["status", "check"]},
	"text_preview": "Please check..."
}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", zerolog.Nop()), &calls
}

func TestClassify_Success(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, statusResponse)
	})

	req := email.NewTextRequest("Please check the status of my request, thanks.", email.LangAuto)
	res, err := c.Classify(context.Background(), req, time.Second)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, email.Productive, res.Category)
	assert.InDelta(t, 0.87, res.Probability, 1e-9)
	assert.Equal(t, "Olá, recebemos sua solicitação.", res.ReplyPT)
	assert.Empty(t, res.ReplyEN)
	assert.Equal(t, "pt", res.DefaultLang)
	assert.Equal(t, "STATUS", res.Explanation.Intent)
	assert.Equal(t, []string{"status", "check"}, res.Explanation.TopFeatures)
	assert.Equal(t, "Please check...", res.TextPreview)
}

func TestClassify_SendsTextFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Please check the status of my request", r.FormValue("email_text"))
		assert.Equal(t, "en", r.FormValue("preferred_lang"))
		_, _, err := r.FormFile("email_file")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		io.WriteString(w, statusResponse)
	})

	req := email.NewTextRequest("Please check the status of my request", email.LangEN)
	_, err := c.Classify(context.Background(), req, time.Second)
	require.NoError(t, err)
}

func TestClassify_SendsFilePart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		f, hdr, err := r.FormFile("email_file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "mail.txt", hdr.Filename)
		assert.Equal(t, "hello from a file", string(data))
		assert.Empty(t, r.FormValue("email_text"))
		assert.Equal(t, "auto", r.FormValue("preferred_lang"))
		io.WriteString(w, statusResponse)
	})

	req := email.NewFileRequest("mail.txt", []byte("hello from a file"), "")
	_, err := c.Classify(context.Background(), req, time.Second)
	require.NoError(t, err)
}

func TestClassify_PortugueseCategoryAndClamp(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true,"category":"Improdutivo","probability":1.7,"reply_lang_default":"EN"}`)
	})

	res, err := c.Classify(context.Background(), email.NewTextRequest("obrigado pela ajuda!", "auto"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, email.Unproductive, res.Category)
	assert.Equal(t, 1.0, res.Probability)
	assert.Equal(t, "en", res.DefaultLang)
}

func TestClassify_UnknownDefaultLangIsPT(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true,"category":"Produtivo","probability":-0.2,"reply_lang_default":"fr"}`)
	})

	res, err := c.Classify(context.Background(), email.NewTextRequest("some longer text", "auto"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, email.Productive, res.Category)
	assert.Equal(t, 0.0, res.Probability)
	assert.Equal(t, "pt", res.DefaultLang)
}

func TestClassify_Timeout(t *testing.T) {
	gate := make(chan struct{})
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-gate
	})
	// Registered after the server's cleanup, so it runs first.
	t.Cleanup(func() { close(gate) })

	start := time.Now()
	_, err := c.Classify(context.Background(), email.NewTextRequest("a slow request body", "auto"), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_Canceled(t *testing.T) {
	gate := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-gate
	})
	t.Cleanup(func() { close(gate) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Classify(ctx, email.NewTextRequest("a request to abandon", "auto"), time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCanceled), "got %v", err)
}

func TestClassify_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"ok":false,"error":"Texto muito curto para classificar."}`)
	})

	_, err := c.Classify(context.Background(), email.NewTextRequest("short text here", "auto"), time.Second)
	require.Error(t, err)
	appErr := errors.As(err)
	assert.Equal(t, errors.ErrRejected, appErr.Code)
	assert.Equal(t, "Texto muito curto para classificar.", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Details["http_status"])
}

func TestClassify_RejectedWithoutMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false}`)
	})

	_, err := c.Classify(context.Background(), email.NewTextRequest("some longer text", "auto"), time.Second)
	appErr := errors.As(err)
	assert.Equal(t, errors.ErrRejected, appErr.Code)
	assert.Equal(t, "error processing the email", appErr.Message)
}

func TestClassify_Non2xxWithOKBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"ok":true,"category":"Productive"}`)
	})

	_, err := c.Classify(context.Background(), email.NewTextRequest("some longer text", "auto"), time.Second)
	assert.True(t, errors.Is(err, errors.ErrRejected), "got %v", err)
}

func TestClassify_NonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>Bad Gateway</html>")
	})

	_, err := c.Classify(context.Background(), email.NewTextRequest("some longer text", "auto"), time.Second)
	appErr := errors.As(err)
	assert.Equal(t, errors.ErrTransport, appErr.Code)
	assert.Equal(t, "invalid response from the classification service", appErr.Message)
}

func TestClassify_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, zerolog.Nop())
	_, err := c.Classify(context.Background(), email.NewTextRequest("some longer text", "auto"), time.Second)
	appErr := errors.As(err)
	assert.Equal(t, errors.ErrTransport, appErr.Code)
	assert.Equal(t, "failed to communicate with the classification service", appErr.Message)
}

func TestFetchConfig(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config", r.URL.Path)
		io.WriteString(w, `{"ok":true,"company_name":" Acme ","logo_url":"/static/acme.png"}`)
	})

	cfg, err := c.FetchConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", cfg.CompanyName)
	assert.Equal(t, "/static/acme.png", cfg.LogoURL)
}

func TestFetchConfig_Failures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"not ok", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"ok":false}`) }},
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "nope") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.h)
			_, err := c.FetchConfig(context.Background())
			assert.Error(t, err)
		})
	}
}
