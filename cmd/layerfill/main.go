package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/fpt/layerfill/internal/bridge"
	"github.com/fpt/layerfill/internal/config"
	"github.com/fpt/layerfill/internal/pipeline"
	"github.com/fpt/layerfill/internal/redact"
	"github.com/fpt/layerfill/pkg/client/ollama"
	"github.com/fpt/layerfill/pkg/document"
	pkgLogger "github.com/fpt/layerfill/pkg/logger"
)

func printUsage() {
	fmt.Println("layerfill - fill placeholder layers ($name) in a design document with AI-generated content")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  fill                    Generate content and write it into the document (default)")
	fmt.Println("  preview                 Generate content and show what would change, without writing")
	fmt.Println("  models                  List models the generation service advertises")
	fmt.Println("  check                   Probe the generation service")
	fmt.Println("  serve                   Run the HTTP bridge for a plugin UI")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  layerfill fill -doc mockup.json -context \"coffee shop landing page\"")
	fmt.Println("  layerfill fill -doc mockup.yaml -select Hero -out filled.yaml")
	fmt.Println("  layerfill preview -doc mockup.json -context \"coffee shop landing page\"")
	fmt.Println("  layerfill serve -addr 127.0.0.1:8787")
	fmt.Println()
}

func main() {
	var (
		docPath      = flag.String("doc", "", "Path to the design document (.json, .yaml)")
		outPath      = flag.String("out", "", "Where to write the filled document (default: in place)")
		contextFlag  = flag.String("context", "", "Free-text context for content generation")
		selectName   = flag.String("select", "", "Operate on the named subtree only")
		settingsPath = flag.String("settings", "", "Path to settings file")
		endpoint     = flag.String("endpoint", "", "Generation endpoint (overrides settings)")
		model        = flag.String("model", "", "Model name (overrides settings)")
		timeoutSec   = flag.Int("timeout", 0, "Generation timeout in seconds (default 60)")
		addr         = flag.String("addr", "127.0.0.1:8787", "Bridge listen address (serve)")
		verbose      = flag.Bool("v", false, "Enable verbose logging (debug level)")
	)
	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevelDebug)
	}
	log := pkgLogger.NewComponentLogger("cli")

	command := "fill"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		log.Error("could not load settings", "error", redact.Error(err))
		os.Exit(1)
	}
	if *endpoint != "" {
		settings.Endpoint = *endpoint
	}
	if *model != "" {
		settings.Model = *model
	}

	client := ollama.NewClientWithTimeout(time.Duration(*timeoutSec) * time.Second)
	p := pipeline.New(client, settings)
	ctx := context.Background()

	switch command {
	case "fill":
		runFill(ctx, log, p, client, settings, *docPath, *outPath, *contextFlag, *selectName, *model == "")
	case "preview":
		runPreview(ctx, log, p, *docPath, *contextFlag, *selectName, settings)
	case "models":
		for _, name := range client.ListModels(ctx, settings.Endpoint) {
			fmt.Println(name)
		}
	case "check":
		if client.TestConnection(ctx, settings.Endpoint) {
			fmt.Printf("generation service reachable at %s\n", settings.Endpoint)
		} else {
			fmt.Printf("generation service unreachable at %s\n", settings.Endpoint)
			os.Exit(1)
		}
	case "serve":
		runServe(log, p, client, *addr)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func runFill(ctx context.Context, log *pkgLogger.Logger, p *pipeline.Pipeline, client *ollama.Client, settings *config.Settings, docPath, outPath, userContext, selectName string, pickModel bool) {
	doc, nodes := loadSelection(log, docPath, selectName)

	init := p.Init(nodes...)
	log.InfoWithIntention(pkgLogger.IntentionResolve, "selection scanned",
		"bindings", init.BindingCount, "variables", len(init.VariableNames))

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if userContext == "" && interactive {
		userContext = promptContext(settings.LastContext)
	}
	if pickModel && interactive {
		if models := client.ListModels(ctx, settings.Endpoint); len(models) > 0 {
			settings.Model = promptModel(models, settings.Model)
		}
	}

	outcome, err := p.Run(ctx, userContext, nodes...)
	if err != nil {
		log.Error("fill failed", "error", redact.Error(err))
		os.Exit(1)
	}

	for _, d := range outcome.Report.Details {
		switch d.Status {
		case "success":
			log.InfoWithIntention(pkgLogger.IntentionInject, "filled", "layer", d.LayerName, "value", d.Value)
		case "skipped":
			log.InfoWithIntention(pkgLogger.IntentionStatus, "skipped", "layer", d.LayerName, "reason", d.Reason)
		default:
			log.Warn("failed", "layer", d.LayerName, "reason", d.Reason)
		}
	}
	log.InfoWithIntention(pkgLogger.IntentionSuccess, "fill complete",
		"updated", outcome.Report.TotalUpdated, "failed", outcome.Report.FailureCount)

	target := outPath
	if target == "" {
		target = docPath
	}
	// The selection shares its nodes with the document, so saving the whole
	// document carries a narrowed run's writes and keeps the other roots.
	if err := document.SaveFile(target, doc); err != nil {
		log.Error("could not save document", "error", redact.Error(err))
		os.Exit(1)
	}
}

func runPreview(ctx context.Context, log *pkgLogger.Logger, p *pipeline.Pipeline, docPath, userContext, selectName string, settings *config.Settings) {
	_, nodes := loadSelection(log, docPath, selectName)

	if userContext == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		userContext = promptContext(settings.LastContext)
	}

	preview, err := p.Preview(ctx, userContext, nodes...)
	if err != nil {
		log.Error("preview failed", "error", redact.Error(err))
		os.Exit(1)
	}

	for _, e := range preview.Entries {
		marker := " "
		if e.WillUpdate {
			marker = "*"
		}
		fmt.Printf("%s %-24s %-10s %q -> %q\n", marker, e.LayerName, e.LayerType, e.CurrentValue, e.NewValue)
	}
}

func runServe(log *pkgLogger.Logger, p *pipeline.Pipeline, client *ollama.Client, addr string) {
	srv := bridge.NewServer(p, client, log)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.InfoWithIntention(pkgLogger.IntentionStatus, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.InfoWithIntention(pkgLogger.IntentionStatus, "bridge listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("bridge error", "error", redact.Error(err))
		os.Exit(1)
	}
}

// loadSelection loads the document and, with a -select name, narrows the
// working selection to that subtree. The full document is returned alongside
// so saves never drop the roots outside the selection.
func loadSelection(log *pkgLogger.Logger, docPath, selectName string) (*document.Document, []*document.Node) {
	if docPath == "" {
		log.Error("no document given; use -doc <file>")
		os.Exit(1)
	}
	doc, err := document.LoadFile(docPath)
	if err != nil {
		log.Error("could not load document", "error", redact.Error(err))
		os.Exit(1)
	}
	nodes := doc.Roots
	if selectName != "" {
		node := document.FindByName(doc.Roots, selectName)
		if node == nil {
			log.Error("no layer with that name", "name", selectName)
			os.Exit(1)
		}
		nodes = []*document.Node{node}
	}
	return doc, nodes
}

func promptContext(lastContext string) string {
	prompt := promptui.Prompt{
		Label:   "Context for the generated content",
		Default: lastContext,
	}
	result, err := prompt.Run()
	if err != nil {
		return lastContext
	}
	return result
}

func promptModel(models []string, current string) string {
	cursor := 0
	for i, m := range models {
		if m == current {
			cursor = i
			break
		}
	}
	sel := promptui.Select{
		Label:     "Model",
		Items:     models,
		CursorPos: cursor,
		Size:      10,
	}
	_, choice, err := sel.Run()
	if err != nil {
		return current
	}
	return choice
}
