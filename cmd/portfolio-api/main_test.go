package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/auth"
	"github.com/UsamaUmmsi/portfolio/backend/internal/config"
	"github.com/UsamaUmmsi/portfolio/backend/internal/intake"
	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"go.uber.org/zap"
)

func TestHashPasswordCommandPrintsVerifiableHash(t *testing.T) {
	output := runCommand(t, "hash-password", "s3cret")

	verifier, err := auth.NewPasswordVerifier(strings.TrimSpace(output))
	if err != nil {
		t.Fatalf("unexpected verifier error: %v", err)
	}
	if err := verifier.Verify("s3cret"); err != nil {
		t.Fatalf("expected printed hash to verify: %v", err)
	}
}

func TestSubmissionsListOnFreshDatabase(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "cli.db")

	output := runCommand(t, "submissions", "list", "--database-path", databasePath, "--log-level", "error")
	if !strings.Contains(output, "Contact Submissions") || !strings.Contains(output, "No submissions yet.") {
		t.Fatalf("unexpected list output %q", output)
	}

	runCommand(t, "submissions", "delete", "42", "--database-path", databasePath, "--log-level", "error")
}

func TestSubmissionsDeleteRejectsNonNumericID(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"submissions", "delete", "abc", "--storage-driver", "memory"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for a non-numeric id")
	}
}

func TestContactCommandStoresSubmissionThroughForm(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "contact.db")

	output := runCommand(t, "contact",
		"--name", "Ada",
		"--email", "ada@example.com",
		"--message", "Hello\nthere",
		"--submit-delay", "1ms",
		"--database-path", databasePath,
		"--log-level", "error")
	if !strings.Contains(output, intake.SuccessMessage) {
		t.Fatalf("expected success indicator, got %q", output)
	}

	listing := runCommand(t, "submissions", "list", "--database-path", databasePath, "--log-level", "error")
	if !strings.Contains(listing, "Ada") || !strings.Contains(listing, "Total submissions: 1") {
		t.Fatalf("expected stored submission in listing, got %q", listing)
	}
}

func TestContactCommandRejectsBlankFields(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs([]string{"contact", "--name", "Ada", "--message", "Hi", "--storage-driver", "memory", "--submit-delay", "1ms", "--log-level", "error"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for a missing email")
	}
	if strings.Contains(out.String(), intake.SuccessMessage) {
		t.Fatalf("did not expect a success indicator, got %q", out.String())
	}
}

func TestWatchDeletesSubmissionsFromInput(t *testing.T) {
	store, err := submissions.NewStore(submissions.StoreConfig{Slot: kvstore.NewMemorySlot(0), Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	t.Cleanup(store.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, id := range []int64{1, 2} {
		record := submissions.Submission{ID: id, Name: "Ada", Email: "ada@example.com", Message: "Hi", Status: submissions.StatusSubmitted}
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}

	var out lockedBuffer
	done := make(chan error, 1)
	go func() {
		appConfig := config.AppConfig{PollInterval: 10 * time.Millisecond}
		done <- watchSubmissions(ctx, store, appConfig, zap.NewNop(), strings.NewReader("refresh\ndelete 1\n"), &out)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected list error: %v", err)
		}
		if len(stored) == 1 && stored[0].ID == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected submission 1 to be deleted, store holds %#v", stored)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected watch error: %v", err)
	}
	if !strings.Contains(out.String(), watchHint) {
		t.Fatalf("expected rendered output with hint, got %q", out.String())
	}
}

func TestParseDeleteCommand(t *testing.T) {
	testCases := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "delete 42", want: 42},
		{input: "d 7", want: 7},
		{input: "delete", wantErr: true},
		{input: "remove 1", wantErr: true},
		{input: "delete x", wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			id, err := parseDeleteCommand(testCase.input)
			if testCase.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", testCase.input)
				}
				return
			}
			if err != nil || id != testCase.want {
				t.Fatalf("expected %d, got %d (%v)", testCase.want, id, err)
			}
		})
	}
}

type lockedBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}
