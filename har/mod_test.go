package har

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const document = `{
  "log": {
    "version": "1.2",
    "creator": {"name": "BrowserMob Proxy", "version": "2.1.4"},
    "pages": [{
      "id": "session1",
      "startedDateTime": "2020-10-13T10:00:00.000Z",
      "title": "session1",
      "pageTimings": {"onLoad": 120}
    }],
    "entries": [{
      "pageref": "session1",
      "startedDateTime": "2020-10-13T10:00:01.000Z",
      "time": 42,
      "request": {
        "method": "GET",
        "url": "http://example.com/",
        "httpVersion": "HTTP/1.1",
        "cookies": [],
        "headers": [{"name": "Host", "value": "example.com"}],
        "queryString": [],
        "headersSize": 38,
        "bodySize": 0
      },
      "response": {
        "status": 200,
        "statusText": "OK",
        "httpVersion": "HTTP/1.1",
        "cookies": [],
        "headers": [],
        "content": {"size": 5, "mimeType": "text/plain", "text": "hello"},
        "redirectURL": "",
        "headersSize": 20,
        "bodySize": 5
      },
      "cache": {},
      "timings": {"send": 1, "wait": 40, "receive": 1}
    }],
    "_extension": {"kept": true}
  }
}`

func TestDecode(t *testing.T) {
	res, err := Decode([]byte(document))
	require.NoError(t, err)

	require.Equal(t, "1.2", res.Log.Version)
	require.Equal(t, "BrowserMob Proxy", res.Log.Creator.Name)
	require.Len(t, res.Log.Pages, 1)
	require.Equal(t, "session1", res.Log.Pages[0].ID)
	require.Equal(t, 120.0, res.Log.Pages[0].PageTimings.OnLoad)

	require.Len(t, res.Log.Entries, 1)
	entry := res.Log.Entries[0]
	require.Equal(t, "session1", entry.PageRef)
	require.Equal(t, "GET", entry.Request.Method)
	require.Equal(t, "http://example.com/", entry.Request.URL)
	require.Equal(t, 200, entry.Response.Status)
	require.Equal(t, "hello", entry.Response.Content.Text)
	require.Equal(t, 40.0, entry.Timings.Wait)

	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Raw(), &raw))
	require.Contains(t, raw["log"], "_extension")
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("<html>"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't decode har: ")
}
