package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-pkgz/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaminer/jobsync/app/notify/mocks"
)

func TestService_Recent(t *testing.T) {
	svc := NewService(Params{MaxRecent: 2}, SendersParams{})
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return ts }

	calls := 0
	unsub := svc.Subscribe(func() { calls++ })

	svc.JobCompleted(t.Context(), "j1")
	svc.JobFailed(t.Context(), "j2", "Unsupported URL")
	svc.JobCompleted(t.Context(), "j3")
	unsub()
	svc.JobCompleted(t.Context(), "j4")

	assert.Equal(t, 3, calls)
	recent := svc.Recent()
	require.Len(t, recent, 2, "bounded")
	assert.Equal(t, Notification{Kind: KindSuccess, JobID: "j4", Message: "Download completed successfully!", Time: ts}, recent[0])
	assert.Equal(t, "j3", recent[1].JobID)
}

func TestService_JobFailedMessage(t *testing.T) {
	svc := NewService(Params{}, SendersParams{})
	svc.JobFailed(t.Context(), "j1", "Video unavailable")
	recent := svc.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, KindError, recent[0].Kind)
	assert.Equal(t, "Error: Video unavailable", recent[0].Message)
}

func TestMakeErrorHTMLDefault(t *testing.T) {
	svc := NewService(Params{Host: "media-box"}, SendersParams{})
	res, err := svc.MakeErrorHTML("j1", "some <b>log</b>")
	require.NoError(t, err)
	assert.Contains(t, res, `<li>Job: <span class="bold">j1</span></li>`)
	assert.Contains(t, res, `Download failed on <span class="bold">media-box</span>`)
	assert.Contains(t, res, "some &lt;b&gt;log&lt;/b&gt;", "escaped")
}

func TestMakeErrorHTMLCustom(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "err.tmpl")
	require.NoError(t, os.WriteFile(good, []byte("Job failed: {{.JobID}}, {{.Error}}"), 0o600))
	bad := filepath.Join(dir, "err-bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("Job failed: {{.JobID"), 0o600))

	svc := NewService(Params{ErrorTemplate: good}, SendersParams{})
	res, err := svc.MakeErrorHTML("j1", "boom")
	require.NoError(t, err)
	assert.Equal(t, "Job failed: j1, boom", res)

	svc = NewService(Params{ErrorTemplate: bad}, SendersParams{})
	res, err = svc.MakeErrorHTML("j1", "boom")
	require.NoError(t, err)
	assert.Contains(t, res, `<li>Job: <span class="bold">j1</span></li>`, "falls back to default")

	svc = NewService(Params{ErrorTemplate: filepath.Join(dir, "missing.tmpl")}, SendersParams{})
	res, err = svc.MakeErrorHTML("j1", "boom")
	require.NoError(t, err)
	assert.Contains(t, res, "Download failed")
}

func TestMakeCompletionHTML(t *testing.T) {
	svc := NewService(Params{}, SendersParams{})
	res, err := svc.MakeCompletionHTML("j1")
	require.NoError(t, err)
	assert.Contains(t, res, "Download completed on")
	assert.Contains(t, res, `<li>Job: <span class="bold">j1</span></li>`)

	tmpl := filepath.Join(t.TempDir(), "done.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte("Job done: {{.JobID}}"), 0o600))
	svc = NewService(Params{CompletionTemplate: tmpl}, SendersParams{})
	res, err = svc.MakeCompletionHTML("j2")
	require.NoError(t, err)
	assert.Equal(t, "Job done: j2", res)
}

func TestService_Send(t *testing.T) {
	tests := []struct {
		name           string
		mockSendErr    error
		expectedErrMsg string
	}{
		{name: "successful send"},
		{name: "send error", mockSendErr: errors.New("mock error"), expectedErrMsg: "mock error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailtoNotifier := &mocks.NotifierMock{
				SendFunc: func(_ context.Context, dest, text string) error {
					assert.Equal(t, "<p>html</p>", text)
					assert.Equal(t, "mailto:to@example.com,to2@example.com?from=from%40example.com&subject=Test+Subject", dest)
					return tt.mockSendErr
				},
				SchemaFunc: func() string { return "mailto" },
				StringFunc: func() string { return "email" },
			}

			s := NewService(Params{}, SendersParams{})
			s.notifiers = []notify.Notifier{mailtoNotifier}
			s.fromEmail = "from@example.com"
			s.toEmail = []string{"to@example.com", "to2@example.com"}

			err := s.Send(t.Context(), "Test Subject", "<p>html</p>", "plain")
			assert.Len(t, mailtoNotifier.SendCalls(), 1)
			if tt.expectedErrMsg == "" {
				require.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.expectedErrMsg)
			}
		})
	}
}

func TestService_SendNoDestinations(t *testing.T) {
	svc := NewService(Params{EnabledError: true, EnabledCompletion: true}, SendersParams{})
	require.NoError(t, svc.Send(t.Context(), "subj", "html", "text"))
	svc.JobCompleted(t.Context(), "j1")
	assert.Len(t, svc.Recent(), 1, "kept even without delivery")
}

func TestService_WebhookDelivery(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	svc := NewService(Params{EnabledError: true, EnabledCompletion: false},
		SendersParams{WebHooks: []string{ts.URL + "/hook1", ts.URL + "/hook2"}, Timeout: time.Second})

	svc.JobCompleted(t.Context(), "j1")
	svc.JobFailed(t.Context(), "j2", "Unsupported URL")

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"job j2: Error: Unsupported URL", "job j2: Error: Unsupported URL"}, bodies,
		"completion delivery disabled, failure sent to both hooks")
}

func TestService_DestName(t *testing.T) {
	s := NewService(Params{}, SendersParams{})
	assert.Equal(t, "mailto:a@example.com", s.destName("mailto:a@example.com?subject=x"))
	assert.Equal(t, "https://example.com/hook", s.destName("https://example.com/hook"))
}
