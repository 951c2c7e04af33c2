package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCall(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA0001","to":"+15551234567","from":"+15557654321","status":"queued"}`))
	}))
	defer srv.Close()

	c := New(Credentials{AccountSID: "AC123", AuthToken: "secret"}).WithBaseURL(srv.URL)
	call, err := c.CreateCall(context.Background(), CallParams{
		To:   "+15551234567",
		From: "+15557654321",
		URL:  "https://bot.example.com/twiml",
	})
	require.NoError(t, err)

	assert.Equal(t, "CA0001", call.SID)
	assert.Equal(t, "/Accounts/AC123/Calls.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+15551234567", gotForm["To"])
	assert.Equal(t, "+15557654321", gotForm["From"])
	assert.Equal(t, "https://bot.example.com/twiml", gotForm["Url"])
	assert.Equal(t, "POST", gotForm["Method"])
}

func TestCreateCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","more_info":"https://www.twilio.com/docs/errors/21211","status":400}`))
	}))
	defer srv.Close()

	c := New(Credentials{AccountSID: "AC123", AuthToken: "secret"}).WithBaseURL(srv.URL)
	_, err := c.CreateCall(context.Background(), CallParams{To: "bad", From: "+15557654321", URL: "https://x/twiml"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 21211, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestCreateCallRequiresCredentials(t *testing.T) {
	_, err := New(Credentials{}).CreateCall(context.Background(), CallParams{})
	require.Error(t, err)
}

func TestHangUp(t *testing.T) {
	var gotPath, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStatus = r.FormValue("Status")
		_, _ = w.Write([]byte(`{"sid":"CA0001","status":"completed"}`))
	}))
	defer srv.Close()

	c := New(Credentials{AccountSID: "AC123", AuthToken: "secret"}).WithBaseURL(srv.URL)
	require.NoError(t, c.HangUp(context.Background(), "CA0001"))
	assert.Equal(t, "/Accounts/AC123/Calls/CA0001.json", gotPath)
	assert.Equal(t, "completed", gotStatus)
}

func TestStreamTwiML(t *testing.T) {
	body, err := StreamTwiML("wss://bot.example.com/ws",
		Param{Name: "to_number", Value: "+15551234567"},
		Param{Name: "from_number", Value: "+15557654321"},
	)
	require.NoError(t, err)

	doc := string(body)
	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, `<Stream url="wss://bot.example.com/ws">`)
	assert.Contains(t, doc, `<Parameter name="to_number" value="+15551234567"></Parameter>`)
	assert.Contains(t, doc, `<Parameter name="from_number" value="+15557654321"></Parameter>`)
	assert.Contains(t, doc, `<Pause length="20"></Pause>`)
}

func TestStreamTwiMLEscapes(t *testing.T) {
	body, err := StreamTwiML("wss://h/ws", Param{Name: "to_number", Value: `"><Hangup/>`})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "<Hangup/>")
}
