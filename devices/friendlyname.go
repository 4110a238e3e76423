package devices

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// FriendlyName returns the friendly name value from a device description
// document URL.
func FriendlyName(descURL string) (string, error) {
	client := &http.Client{}
	req, err := http.NewRequest(http.MethodGet, descURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create NewRequest for FriendlyName: %w", err)
	}

	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send HTTP request for FriendlyName: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("FriendlyName unexpected status: %s", resp.Status)
	}

	var fn struct {
		FriendlyName string `xml:"device>friendlyName"`
	}

	if err = xml.NewDecoder(resp.Body).Decode(&fn); err != nil {
		return "", fmt.Errorf("failed to read response body for FriendlyName: %w", err)
	}

	if fn.FriendlyName == "" {
		return "", fmt.Errorf("FriendlyName missing from description document")
	}

	return fn.FriendlyName, nil
}
