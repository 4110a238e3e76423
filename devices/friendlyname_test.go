package devices

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFriendlyName(t *testing.T) {
	fn := "Living Room TV"
	testName := "FriendlyName"
	type root struct {
		FriendlyName string `xml:"device>friendlyName"`
	}

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := root{
			FriendlyName: fn,
		}

		dataXML, _ := xml.Marshal(data)

		w.Header().Set("Content-Type", "text/xml")
		if r.Header.Get("Connection") == "close" {
			w.Header().Set("Connection", "close")
		}

		_, _ = w.Write(dataXML)
	}))

	defer testServer.Close()

	friendly, err := FriendlyName(testServer.URL)
	if err != nil {
		t.Fatalf("%s: Failed to call FriendlyName due to %s", testName, err.Error())
	}

	if friendly != fn {
		t.Fatalf("%s: got: %s, want: %s.", testName, friendly, fn)
	}
}

func TestFriendlyNameMissingTag(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<root><device><modelName>Nest Hub</modelName></device></root>`))
	}))
	defer testServer.Close()

	if _, err := FriendlyName(testServer.URL); err == nil {
		t.Fatal("expected an error for a description without a friendlyName tag")
	}
}

func TestFriendlyNameNon2xx(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer testServer.Close()

	if _, err := FriendlyName(testServer.URL); err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
