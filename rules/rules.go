// Package rules manages the filter rules of the upstream stream: the server
// side expressions deciding which posts are delivered. nostrbird keeps one
// rule per followed account, tagged "from <name>".
package rules

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"nostrbird.lol/context"
	"nostrbird.lol/log"
)

// ErrNoSuchRule is returned by Delete when no rule carries the account's tag.
var ErrNoSuchRule = errors.New("no such rule")

// Rule is one filter rule as the rules endpoint describes it.
type Rule struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Tag   string `json:"tag"`
}

// ForAccount is the rule delivering every post by the named account.
func ForAccount(name string) Rule {
	return Rule{Value: "from:" + name, Tag: TagFor(name)}
}

// TagFor is the label of the rule for the named account.
func TagFor(name string) string { return "from " + name }

// SelectByTag returns the ids of the rules whose tag is exactly tag.
func SelectByTag(rules []Rule, tag string) (ids []string) {
	for _, r := range rules {
		if r.Tag == tag {
			ids = append(ids, r.ID)
		}
	}
	return
}

type listResponse struct {
	Data []Rule `json:"data"`
}

type addRequest struct {
	Add []Rule `json:"add"`
}

type deleteRequest struct {
	Delete struct {
		IDs []string `json:"ids"`
	} `json:"delete"`
}

// Client talks to the rules endpoint with a bearer token.
type Client struct {
	URL         string
	BearerToken string
	HTTP        *http.Client
}

func New(url, bearerToken string) *Client {
	return &Client{URL: url, BearerToken: bearerToken, HTTP: http.DefaultClient}
}

// do sends one request and logs the status and body of the response.
func (cl *Client) do(c context.T, method string, payload any) (body []byte, err error) {
	var rd io.Reader
	if payload != nil {
		var b []byte
		if b, err = json.Marshal(payload); err != nil {
			return nil, errors.Wrap(err, "encoding rules request")
		}
		rd = bytes.NewReader(b)
	}
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, method, cl.URL, rd); err != nil {
		return nil, errors.Wrap(err, "building rules request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cl.BearerToken)
	var res *http.Response
	if res, err = cl.HTTP.Do(req); err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, cl.URL)
	}
	defer res.Body.Close()
	log.I.F("status: %s", res.Status)
	if body, err = io.ReadAll(res.Body); err != nil {
		return nil, errors.Wrap(err, "reading rules response")
	}
	log.I.F("body: %s", body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return body, errors.Errorf("%s %s: %s", method, cl.URL, res.Status)
	}
	return
}

// List fetches the current rules.
func (cl *Client) List(c context.T) (rules []Rule, err error) {
	var body []byte
	if body, err = cl.do(c, http.MethodGet, nil); err != nil {
		return
	}
	var lr listResponse
	if err = json.Unmarshal(body, &lr); err != nil {
		return nil, errors.Wrap(err, "decoding rules")
	}
	return lr.Data, nil
}

// Create adds the rule for the named account.
func (cl *Client) Create(c context.T, name string) (err error) {
	_, err = cl.do(c, http.MethodPost, addRequest{Add: []Rule{ForAccount(name)}})
	return
}

// Delete removes the rule for the named account. If there is none it returns
// ErrNoSuchRule without touching the endpoint again.
func (cl *Client) Delete(c context.T, name string) (err error) {
	var rules []Rule
	if rules, err = cl.List(c); err != nil {
		return
	}
	ids := SelectByTag(rules, TagFor(name))
	if len(ids) == 0 {
		return errors.Wrapf(ErrNoSuchRule, "tag %q", TagFor(name))
	}
	return cl.DeleteIDs(c, ids...)
}

// DeleteIDs removes rules by id.
func (cl *Client) DeleteIDs(c context.T, ids ...string) (err error) {
	var dr deleteRequest
	dr.Delete.IDs = ids
	_, err = cl.do(c, http.MethodPost, dr)
	return
}
