package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Open asks a running canvas at addr to open address in a new tile.
func Open(ctx context.Context, addr, address string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(openRequest{URL: address})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/tiles", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: is tilecanvas running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var out openResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return fmt.Errorf("bridge: %s: %s", resp.Status, out.Error)
	}
	return nil
}
