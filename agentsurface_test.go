package agentsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsurface/a2a"
	"github.com/hupe1980/agentsurface/model"
	"github.com/hupe1980/agentsurface/surface"
)

// fakeAgent serves a capability descriptor plus a scripted streaming reply,
// recording every generation request it receives.
type fakeAgent struct {
	mu       sync.Mutex
	requests []model.Request
	replies  []string
}

func (f *fakeAgent) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(a2a.WellKnownPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "IT Service Agent", "capabilities": {"streaming": true}}`)
	})
	mux.HandleFunc("/v1/message:stream", func(w http.ResponseWriter, r *http.Request) {
		var req model.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		reply := "done"
		if len(f.replies) > 0 {
			reply = f.replies[0]
			if len(f.replies) > 1 {
				f.replies = f.replies[1:]
			}
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{reply[:len(reply)/2], reply[len(reply)/2:]} {
			payload, _ := json.Marshal(map[string]string{"text": chunk})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	return mux
}

func (f *fakeAgent) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func collectEnvelopes(t *testing.T, ch <-chan surface.Envelope) []surface.Envelope {
	t.Helper()
	var got []surface.Envelope
	for env := range ch {
		got = append(got, env)
	}
	return got
}

func finalText(t *testing.T, envs []surface.Envelope) string {
	t.Helper()
	for i := len(envs) - 1; i >= 0; i-- {
		for _, comp := range envs[i].SurfaceUpdate.Components {
			if comp.Component.Text != nil {
				return comp.Component.Text.Text.LiteralString
			}
		}
	}
	t.Fatal("no text fragment found")
	return ""
}

func TestChatStreamsEnvelopes(t *testing.T) {
	agent := &fakeAgent{replies: []string{"Your VM is ready."}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	host := New(WithSystemPrompt("You are an IT assistant."))
	envs, err := host.Chat(context.Background(), srv.URL, "s1", "provision a vm")
	require.NoError(t, err)

	got := collectEnvelopes(t, envs)
	require.NotEmpty(t, got)
	assert.Equal(t, "Your VM is ready.", finalText(t, got))

	// Every envelope carries the root container as its last fragment.
	for _, env := range got {
		comps := env.SurfaceUpdate.Components
		require.NotEmpty(t, comps)
		assert.Equal(t, surface.RootID, comps[len(comps)-1].ID)
		require.NotNil(t, comps[len(comps)-1].Component.Column)
	}
}

func TestChatContinuesSession(t *testing.T) {
	agent := &fakeAgent{replies: []string{"vm-42 is provisioning.", "Still provisioning."}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	host := New(WithSystemPrompt("You are an IT assistant."))

	envs, err := host.Chat(context.Background(), srv.URL, "s1", "provision a vm")
	require.NoError(t, err)
	collectEnvelopes(t, envs)

	envs, err = host.Chat(context.Background(), srv.URL, "s1", "is it done?")
	require.NoError(t, err)
	collectEnvelopes(t, envs)

	require.Equal(t, 2, agent.requestCount())
	second := agent.requests[1]
	// system, user, assistant, user
	require.Len(t, second.Turns, 4)
	assert.Equal(t, "provision a vm", second.Turns[1].Text)
	assert.Equal(t, "vm-42 is provisioning.", second.Turns[2].Text)
	assert.Equal(t, "is it done?", second.Turns[3].Text)
}

func TestChatUnreachableAgent(t *testing.T) {
	host := New()

	_, err := host.Chat(context.Background(), "http://127.0.0.1:1", "s1", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, a2a.ErrUnreachableAgent)
}

type formClassifier struct{}

func (formClassifier) Classify(_ context.Context, _ string, fragmentID string) ([]surface.Component, error) {
	return []surface.Component{
		surface.NewTextComponent(fragmentID, "I need a few details:", ""),
		{ID: "form_vm", Component: surface.ComponentUnion{Form: &surface.Form{
			Title:  "VM Specification",
			Fields: []surface.FormField{{ID: "cpu", Type: "number", Label: "CPU cores"}},
		}}},
	}, nil
}

func TestChatRefinesFinalAnswer(t *testing.T) {
	agent := &fakeAgent{replies: []string{"What CPU and RAM do you need?"}}
	srv := httptest.NewServer(agent.handler())
	defer srv.Close()

	host := New(WithClassifier(formClassifier{}))
	envs, err := host.Chat(context.Background(), srv.URL, "s1", "provision a vm")
	require.NoError(t, err)

	got := collectEnvelopes(t, envs)
	var form *surface.Form
	for _, env := range got {
		for _, comp := range env.SurfaceUpdate.Components {
			if comp.Component.Form != nil {
				form = comp.Component.Form
			}
		}
	}
	require.NotNil(t, form, "final answer should be refined into a form")
	assert.Equal(t, "VM Specification", form.Title)

	last := got[len(got)-1]
	rootCol := last.SurfaceUpdate.Components[len(last.SurfaceUpdate.Components)-1].Component.Column
	require.NotNil(t, rootCol)
	assert.Contains(t, rootCol.Children.ExplicitList, "form_vm")
}
