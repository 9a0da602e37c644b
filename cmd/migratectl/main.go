package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	mcpclient "tg-forum-migrator/internal/mcp"
	"tg-forum-migrator/internal/statusmcp"
)

func main() {
	var url string
	var tool string
	var argsJSON string
	flag.StringVar(&url, "url", getEnv("MIGRATOR_MCP_URL", "http://localhost:8090/mcp"), "MCP endpoint of a running migrator")
	flag.StringVar(&tool, "tool", statusmcp.ToolReport, "tool to call")
	flag.StringVar(&argsJSON, "args", "", "JSON object string for tool arguments")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var args map[string]interface{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			fmt.Fprintln(os.Stderr, "ERR: invalid -args JSON:", err)
			os.Exit(1)
		}
	}

	out, err := mcpclient.Call(ctx, url, tool, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERR:", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func getEnv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}
