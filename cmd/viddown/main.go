// viddown is a command-line consumer of the job API: it submits a URL,
// polls the job until it is terminal, and saves the artifact locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/viddown/api/pkg/client"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:3000", "job API base URL")
		url      = flag.String("url", "", "media URL to download (required)")
		format   = flag.String("format", "mp4", "target container or audio format")
		quality  = flag.String("quality", "1080p", "quality descriptor")
		title    = flag.String("title", "", "title used for the saved filename")
		outDir   = flag.String("out", ".", "directory to save the artifact into")
		interval = flag.Duration("interval", 2*time.Second, "status poll interval")
	)
	flag.Parse()

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*server, client.WithPollInterval(*interval))
	ctx := context.Background()

	jobID, err := c.Start(ctx, client.StartRequest{
		URL:     *url,
		Format:  *format,
		Quality: *quality,
		Title:   *title,
	})
	if err != nil {
		log.Fatalf("start failed: %v", err)
	}
	log.Printf("job %s started", jobID)

	status, err := c.Poll(ctx, jobID, func(s client.JobStatus) {
		fmt.Printf("\r%s %3d%%", s.Status, s.Progress)
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("polling failed: %v", err)
	}

	if status.Status == client.StatusError {
		msg := "unknown error"
		if status.Error != nil {
			msg = *status.Error
		}
		log.Fatalf("job failed: %s", msg)
	}

	path, err := c.Fetch(ctx, jobID, *outDir)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
	log.Printf("saved %s", path)
}
