// lumen: photo editing and AI image generation from the terminal.
// Commands: signup, login, verify, logout, status, credits, buy, improve,
// gallery, upscale, edit.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/term"

	"github.com/lumen-studio/lumen/internal/artifact"
	"github.com/lumen-studio/lumen/internal/auth"
	"github.com/lumen-studio/lumen/internal/blobstore"
	"github.com/lumen-studio/lumen/internal/config"
	"github.com/lumen-studio/lumen/internal/docstore"
	"github.com/lumen-studio/lumen/internal/gallery"
	"github.com/lumen-studio/lumen/internal/gateway"
	"github.com/lumen-studio/lumen/internal/ledger"
	"github.com/lumen-studio/lumen/internal/session"
)

// creditPacks are the purchasable credit bundles.
var creditPacks = map[string]int{
	"starter": 50,
	"creator": 120,
	"studio":  300,
}

// app wires the full stack for one CLI invocation.
type app struct {
	cfg     *config.Config
	store   docstore.Store
	blobs   blobstore.Store
	ledger  *ledger.Client
	auth    *auth.Local
	gallery *gallery.Manager
	bridge  *session.Bridge
	gw      gateway.Service
}

// unconfiguredGateway stands in when no API key is set; every AI call fails
// with a setup hint.
type unconfiguredGateway struct{ env string }

func (u unconfiguredGateway) fail() error {
	return fmt.Errorf("AI service not configured: set %s", u.env)
}

func (u unconfiguredGateway) Generate(context.Context, string, string) (*artifact.Artifact, error) {
	return nil, u.fail()
}

func (u unconfiguredGateway) Edit(context.Context, *artifact.Artifact, string, gateway.Hotspot) (*artifact.Artifact, error) {
	return nil, u.fail()
}

func (u unconfiguredGateway) Filter(context.Context, *artifact.Artifact, string) (*artifact.Artifact, error) {
	return nil, u.fail()
}

func (u unconfiguredGateway) Adjust(context.Context, *artifact.Artifact, string) (*artifact.Artifact, error) {
	return nil, u.fail()
}

func (u unconfiguredGateway) Upscale(context.Context, *artifact.Artifact) (*artifact.Artifact, error) {
	return nil, u.fail()
}

func (u unconfiguredGateway) ImprovePrompt(context.Context, string) (string, error) {
	return "", u.fail()
}

func openApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := docstore.Open(cfg.DbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var blobs blobstore.Store
	switch cfg.BlobBackend {
	case "s3":
		s3, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			PathStyle:    cfg.S3.PathStyle,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			SessionToken: cfg.S3.SessionToken,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open s3 blob store: %w", err)
		}
		blobs = blobstore.NewRetrying(s3, blobstore.DefaultRetryConfig())
	case "memory":
		blobs = blobstore.NewMemoryStore()
	default:
		blobs = blobstore.NewFolderStore(cfg.BlobDir)
	}

	var gw gateway.Service
	if key := cfg.GeminiAPIKey(); key != "" {
		gw, err = gateway.NewGemini(ctx, key)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open AI gateway: %w", err)
		}
	} else {
		gw = unconfiguredGateway{env: cfg.GeminiAPIKeyEnv}
	}

	lc := ledger.New(store)
	gm := gallery.New(store, blobs, lc, gw, cfg.Costs.Upscale)
	authSvc := auth.NewLocal(store, cfg.SignupCredits)
	bridge := session.New(authSvc, lc, gm, gw, cfg.Costs)

	a := &app{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		ledger:  lc,
		auth:    authSvc,
		gallery: gm,
		bridge:  bridge,
		gw:      gw,
	}
	a.restoreSession(ctx)
	return a, nil
}

func (a *app) close() {
	a.bridge.Close()
	a.store.Close()
}

// restoreSession resumes a persisted login, if any.
func (a *app) restoreSession(ctx context.Context) {
	b, err := os.ReadFile(a.cfg.SessionPath)
	if err != nil {
		return
	}
	uid := strings.TrimSpace(string(b))
	if uid == "" {
		return
	}
	if _, err := a.auth.Restore(ctx, uid); err != nil {
		os.Remove(a.cfg.SessionPath)
	}
}

func (a *app) saveSession(uid string) {
	_ = os.WriteFile(a.cfg.SessionPath, []byte(uid+"\n"), 0600)
}

func (a *app) clearSession() {
	_ = os.Remove(a.cfg.SessionPath)
}

// requireProfile insists on a signed-in, verified, hydrated identity.
func (a *app) requireProfile() *ledger.Profile {
	id := a.auth.Current()
	if id == nil {
		fmt.Fprintln(os.Stderr, "lumen: not signed in, run 'lumen login <email>'")
		os.Exit(1)
	}
	if !id.EmailVerified {
		fmt.Fprintln(os.Stderr, "lumen: email not verified, run 'lumen verify'")
		os.Exit(1)
	}
	p := a.bridge.Profile()
	if p == nil {
		if err := a.bridge.Refresh(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "lumen: profile not ready: %v\n", err)
			os.Exit(1)
		}
		p = a.bridge.Profile()
	}
	return p
}

func readPassword(prompt string) string {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: read password: %v\n", err)
		os.Exit(1)
	}
	return string(b)
}

func cmdSignup(a *app, email string) {
	pw := readPassword("Password: ")
	if pw != readPassword("Repeat password: ") {
		fmt.Fprintln(os.Stderr, "lumen signup: passwords do not match")
		os.Exit(1)
	}
	id, err := a.auth.SignUp(context.Background(), email, pw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen signup: %v\n", err)
		os.Exit(1)
	}
	a.saveSession(id.UID)
	fmt.Printf("Account created for %s with %d welcome credits.\n", id.Email, a.cfg.SignupCredits)
	fmt.Println("Run 'lumen verify' to confirm your email and unlock editing.")
}

func cmdLogin(a *app, email string) {
	pw := readPassword("Password: ")
	id, err := a.auth.SignIn(context.Background(), email, pw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen login: %v\n", err)
		os.Exit(1)
	}
	a.saveSession(id.UID)
	fmt.Printf("Signed in as %s.\n", id.Email)
	if !id.EmailVerified {
		fmt.Println("Email not verified yet; run 'lumen verify'.")
	}
}

func cmdVerify(a *app) {
	if err := a.auth.MarkVerified(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "lumen verify: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Email verified.")
}

func cmdLogout(a *app) {
	a.auth.SignOut()
	a.clearSession()
	fmt.Println("Signed out.")
}

func cmdStatus(a *app) {
	fmt.Printf("lumen status\n")
	fmt.Printf("  db:    %s\n", a.cfg.DbPath)
	fmt.Printf("  blobs: %s (%s)\n", a.cfg.BlobDir, a.cfg.BlobBackend)
	id := a.auth.Current()
	if id == nil {
		fmt.Printf("  user:  signed out\n")
		return
	}
	verified := "unverified"
	if id.EmailVerified {
		verified = "verified"
	}
	fmt.Printf("  user:  %s (%s)\n", id.Email, verified)
	if p := a.bridge.Profile(); p != nil {
		fmt.Printf("  credits: %d\n", p.Credits)
	}
}

func cmdCredits(a *app) {
	p := a.requireProfile()
	fmt.Printf("Balance: %d credits\n\n", p.Credits)
	if len(p.Transactions) == 0 {
		fmt.Println("(no transactions)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"When", "Reason", "Amount"})
	for _, tx := range p.Transactions {
		t.AppendRow(table.Row{tx.CreatedAt.Format("2006-01-02 15:04"), tx.Reason, fmt.Sprintf("%+d", tx.Amount)})
	}
	t.Render()
}

func cmdBuy(a *app, pack string) {
	p := a.requireProfile()
	credits, ok := creditPacks[pack]
	if !ok {
		fmt.Fprintf(os.Stderr, "lumen buy: unknown pack %q (starter, creator, studio)\n", pack)
		os.Exit(1)
	}
	p, err := a.ledger.Purchase(context.Background(), p.UID, pack, credits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen buy: %v\n", err)
		os.Exit(1)
	}
	_ = a.bridge.Refresh(context.Background())
	fmt.Printf("Purchased %s pack: +%d credits, balance %d.\n", pack, credits, p.Credits)
}

func cmdImprove(a *app, prompt string) {
	improved, err := a.gw.ImprovePrompt(context.Background(), prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen improve: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(improved)
}

func cmdGallery(a *app) {
	a.requireProfile()
	entries := a.gallery.Entries()
	if len(entries) == 0 {
		fmt.Println("Gallery is empty. Generate an image with 'lumen edit'.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Created", "Prompt", "Upscaled", "URL"})
	for i, e := range entries {
		up := ""
		if e.Upscaled {
			up = "yes"
		}
		prompt := e.Prompt
		if len(prompt) > 40 {
			prompt = prompt[:37] + "..."
		}
		t.AppendRow(table.Row{i + 1, e.CreatedAt.Format("2006-01-02 15:04"), prompt, up, e.URL})
	}
	t.Render()
}

func cmdUpscale(a *app, arg string) {
	p := a.requireProfile()
	n, err := strconv.Atoi(arg)
	entries := a.gallery.Entries()
	if err != nil || n < 1 || n > len(entries) {
		fmt.Fprintf(os.Stderr, "lumen upscale: usage: lumen upscale <gallery #>\n")
		os.Exit(1)
	}
	entry := entries[n-1]

	p, err = a.gallery.Upscale(context.Background(), p, entry.ID)
	_ = a.bridge.Refresh(context.Background())
	if err != nil {
		var ice *ledger.InsufficientCreditsError
		if errors.As(err, &ice) {
			fmt.Fprintf(os.Stderr, "lumen upscale: %v, run 'lumen buy <pack>'\n", ice)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "lumen upscale: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Upscaled gallery entry %d. Balance: %d credits.\n", n, p.Credits)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("lumen: photo editing and AI image generation")
		fmt.Println("Usage: lumen <signup|login|verify|logout|status|credits|buy|improve|gallery|upscale|edit>")
		os.Exit(0)
	}

	a, err := openApp(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	switch os.Args[1] {
	case "signup":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "lumen signup: usage: lumen signup <email>")
			os.Exit(1)
		}
		cmdSignup(a, os.Args[2])
	case "login":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "lumen login: usage: lumen login <email>")
			os.Exit(1)
		}
		cmdLogin(a, os.Args[2])
	case "verify":
		cmdVerify(a)
	case "logout":
		cmdLogout(a)
	case "status":
		cmdStatus(a)
	case "credits":
		cmdCredits(a)
	case "buy":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "lumen buy: usage: lumen buy <starter|creator|studio>")
			os.Exit(1)
		}
		cmdBuy(a, os.Args[2])
	case "improve":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "lumen improve: usage: lumen improve <prompt>")
			os.Exit(1)
		}
		cmdImprove(a, strings.Join(os.Args[2:], " "))
	case "gallery":
		cmdGallery(a)
	case "upscale":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "lumen upscale: usage: lumen upscale <gallery #>")
			os.Exit(1)
		}
		cmdUpscale(a, os.Args[2])
	case "edit":
		runEditor(a, bufio.NewScanner(os.Stdin))
	default:
		fmt.Fprintf(os.Stderr, "lumen: unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
