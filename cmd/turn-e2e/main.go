package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayushsaha1018/ai-interviewer/internal/backend"
	"github.com/ayushsaha1018/ai-interviewer/internal/config"
	"github.com/ayushsaha1018/ai-interviewer/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	url := flag.String("backend", cfg.Backend.URL, "Turn backend URL")
	text := flag.String("text", "start interview", "Text to submit")
	wavPath := flag.String("wav", "", "Submit this WAV file as speech instead of -text")
	role := flag.String("role", "Backend Engineer", "Job role")
	desc := flag.String("desc", "Build and operate Go services.", "Job description")
	resume := flag.String("resume", "Five years of Go and distributed systems.", "Resume text")
	out := flag.String("out", "", "Save the reply audio to this file")
	timeout := flag.Duration("timeout", 60*time.Second, "Timeout for the whole exchange")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	in := backend.TextInput(*text)
	if *wavPath != "" {
		b, err := os.ReadFile(*wavPath)
		if err != nil {
			log.Fatalf("read wav: %v", err)
		}
		in = backend.AudioInput(b)
	}
	job := session.JobContext{JobRole: *role, JobDesc: *desc, ResumeContent: *resume}

	fmt.Printf("=== Turn E2E ===\n")
	fmt.Printf("Backend: %s\n", *url)
	fmt.Printf("Input:   %s\n\n", in.Kind)

	client := backend.New(*url)
	res, err := client.Submit(ctx, in, nil, job)
	if err != nil {
		fmt.Printf("[x] submit failed (%s): %v\n", backend.KindOf(err), err)
		fmt.Printf("    user sees: %q\n", backend.UserMessage(err))
		os.Exit(1)
	}
	defer res.Audio.Close()

	fmt.Printf("[1] request id: %s\n", res.RequestID)
	fmt.Printf("[2] transcript: %q\n", res.Transcript)
	fmt.Printf("[3] reply:      %q\n", res.ResponseText)
	fmt.Printf("[4] latency:    %dms\n", res.Latency.Milliseconds())

	var w io.Writer = io.Discard
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	n, err := io.Copy(w, res.Audio)
	if err != nil {
		log.Fatalf("read reply audio: %v", err)
	}
	fmt.Printf("[5] audio:      %d bytes", n)
	if *out != "" {
		fmt.Printf(" -> %s", *out)
	}
	fmt.Println()
}
