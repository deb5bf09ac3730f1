package rules

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostrbird.lol/context"
)

const existing = `{"data":[{"id":"a","value":"from:greg","tag":"from greg"},` +
	`{"id":"b","value":"from:alec","tag":"from alec"}],"meta":{"result_count":2}}`

func TestSelectByTag(t *testing.T) {
	rules := []Rule{{ID: "a", Tag: "from greg"}, {ID: "b", Tag: "from alec"}}
	assert.Equal(t, []string{"a"}, SelectByTag(rules, TagFor("greg")))
	assert.Equal(t, []string{"b"}, SelectByTag(rules, TagFor("alec")))
	assert.Empty(t, SelectByTag(rules, TagFor("gre")))
	assert.Empty(t, SelectByTag(nil, TagFor("greg")))
}

// fakeRules serves existing on GET and records POST bodies.
type fakeRules struct {
	mx    sync.Mutex
	posts []map[string]any
	auth  []string
}

func (f *fakeRules) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	switch r.Method {
	case http.MethodGet:
		io.WriteString(w, existing)
	case http.MethodPost:
		var m map[string]any
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &m); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.posts = append(f.posts, m)
		io.WriteString(w, `{"meta":{"summary":{"created":1}}}`)
	}
}

func TestListCreateDelete(t *testing.T) {
	f := &fakeRules{}
	srv := httptest.NewServer(f)
	defer srv.Close()
	cl := New(srv.URL, "tok")

	rules, err := cl.List(context.Bg())
	require.NoError(t, err)
	assert.Equal(t, []Rule{
		{ID: "a", Value: "from:greg", Tag: "from greg"},
		{ID: "b", Value: "from:alec", Tag: "from alec"},
	}, rules)

	require.NoError(t, cl.Create(context.Bg(), "alecchendev"))
	require.NoError(t, cl.Delete(context.Bg(), "greg"))

	f.mx.Lock()
	defer f.mx.Unlock()
	require.Len(t, f.posts, 2)
	assert.Equal(t, map[string]any{"add": []any{
		map[string]any{"value": "from:alecchendev", "tag": "from alecchendev"},
	}}, f.posts[0])
	assert.Equal(t, map[string]any{"delete": map[string]any{"ids": []any{"a"}}}, f.posts[1])
	for _, a := range f.auth {
		assert.Equal(t, "Bearer tok", a)
	}
}

func TestDeleteUnknownAccount(t *testing.T) {
	f := &fakeRules{}
	srv := httptest.NewServer(f)
	defer srv.Close()
	err := New(srv.URL, "tok").Delete(context.Bg(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchRule))
	assert.Empty(t, f.posts)
}

func TestListEmptyAndFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"title":"Unauthorized"}`)
			return
		}
		io.WriteString(w, `{"meta":{"result_count":0}}`)
	}))
	defer srv.Close()
	rules, err := New(srv.URL, "good").List(context.Bg())
	require.NoError(t, err)
	assert.Empty(t, rules)
	_, err = New(srv.URL, "bad").List(context.Bg())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
