// Command skinscan submits one photo to the analysis endpoint and prints the metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go-skin-inspector/internal/config"
	"go-skin-inspector/internal/container"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/view"
	"go-skin-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

func main() {
	file := flag.String("file", "", "path of the photo to analyze")
	ref := flag.String("url", "", "http(s) or azblob:// reference of the photo to analyze")
	analyzeURL := flag.String("analyze-url", "", "analysis endpoint (overrides ANALYZE_URL)")
	flag.Parse()

	if (*file == "") == (*ref == "") {
		fmt.Fprintln(os.Stderr, "usage: skinscan -file photo.jpg | -url https://host/photo.jpg")
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *analyzeURL != "" {
		cfg.AnalyzeURL = *analyzeURL
	}
	logger.SetLevel(cfg.LogLevel)

	// banners go to the log instead of a browser
	shown := map[string]bool{}
	logRenderer := view.RendererFunc(func(m view.Model) {
		for _, n := range m.Notifications {
			if shown[n.ID] {
				continue
			}
			shown[n.ID] = true
			logger.WithFields(logrus.Fields{"kind": n.Kind}).Info(n.Message)
		}
	})

	c, err := container.NewContainer(cfg, logRenderer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx := context.Background()
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
			os.Exit(1)
		}
		err = c.Session().LoadFile(ctx, data)
	} else {
		err = c.Session().LoadURL(ctx, *ref)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		os.Exit(1)
	}

	if err := c.Pipeline().Submit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	m := c.Store().Snapshot()
	out := make(map[string]string, len(models.MetricNames))
	for _, name := range models.MetricNames {
		if v, ok := m.Slots[name]; ok {
			out[name] = v
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
