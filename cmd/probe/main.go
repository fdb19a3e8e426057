// Command probe prints a quick, human-readable report about a running
// pulsar-mcp bridge. It checks the health endpoint, lists every
// registered tool with its parameter and annotation summary, and
// highlights tools that ship without a description.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
	"github.com/asiloisad/pulsar-pulsar-mcp/transport/relay"
)

type healthPayload struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type toolListing struct {
	Tools []service.ToolInfo `json:"tools"`
}

func main() {
	cmd := &cli.Command{
		Name:  "probe",
		Usage: "inspect a running pulsar-mcp bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   relay.DefaultHost,
				Usage:   "bridge host",
				Sources: cli.EnvVars("PULSAR_MCP_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   relay.DefaultPort,
				Usage:   "bridge port",
				Sources: cli.EnvVars("PULSAR_MCP_PORT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			base := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
			return probe(os.Stdout, base)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// probe fetches the bridge's health and tool listing and writes the
// report to w.
func probe(w io.Writer, baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var health healthPayload
	if err := fetchJSON(client, baseURL+"/health", &health); err != nil {
		return fmt.Errorf("bridge not reachable at %s: %w", baseURL, err)
	}

	fmt.Fprintf(w, "\n=== Bridge %s ===\n", baseURL)
	fmt.Fprintf(w, "Status: %s\n", health.Status)
	fmt.Fprintf(w, "Clock: %s\n", time.UnixMilli(health.Timestamp).Format(time.RFC3339))

	var listing toolListing
	if err := fetchJSON(client, baseURL+"/tools", &listing); err != nil {
		return fmt.Errorf("tool listing failed: %w", err)
	}

	fmt.Fprintf(w, "\n=== Tools (%d) ===\n", len(listing.Tools))

	readOnly := 0
	destructive := 0
	missingDescriptions := 0

	for _, tool := range listing.Tools {
		if marks := markers(tool.Annotations); marks != "" {
			fmt.Fprintf(w, "%s %s\n", tool.Name, marks)
		} else {
			fmt.Fprintf(w, "%s\n", tool.Name)
		}

		if tool.Description == "" {
			missingDescriptions++
		} else {
			fmt.Fprintf(w, "  %s\n", tool.Description)
		}

		params, required := schemaSummary(tool.InputSchema)
		fmt.Fprintf(w, "  Parameters: %d (%d required)\n", params, required)

		if hintSet(tool.Annotations, "readOnlyHint") {
			readOnly++
		}
		if hintSet(tool.Annotations, "destructiveHint") {
			destructive++
		}
	}

	fmt.Fprintf(w, "\nRead-only: %d\n", readOnly)
	fmt.Fprintf(w, "Destructive: %d\n", destructive)

	if missingDescriptions > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d tools have no description\n", missingDescriptions)
	} else {
		fmt.Fprintf(w, "✅ Every tool carries a description\n")
	}

	return nil
}

func fetchJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// markers renders annotation hints as a compact suffix, e.g.
// "[read-only, idempotent]".
func markers(annotations map[string]any) string {
	var marks []string
	if hintSet(annotations, "readOnlyHint") {
		marks = append(marks, "read-only")
	}
	if hintSet(annotations, "destructiveHint") {
		marks = append(marks, "destructive")
	}
	if hintSet(annotations, "idempotentHint") {
		marks = append(marks, "idempotent")
	}
	if len(marks) == 0 {
		return ""
	}
	return "[" + strings.Join(marks, ", ") + "]"
}

func hintSet(annotations map[string]any, key string) bool {
	hint, ok := annotations[key].(bool)
	return ok && hint
}

// schemaSummary counts declared and required parameters. Anything that
// is not an object schema counts as zero parameters.
func schemaSummary(schema any) (params, required int) {
	obj, ok := schema.(map[string]any)
	if !ok {
		return 0, 0
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		params = len(props)
	}
	if req, ok := obj["required"].([]any); ok {
		required = len(req)
	}
	return params, required
}
