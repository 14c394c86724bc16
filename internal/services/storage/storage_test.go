package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const passphrase = "testpassphrase123"

func init() {
	workFactor = 10
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	original := []byte(`{"loan_amount":"250000","cibil_score":"720"}`)
	if err := store.Write("session-a", original); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	read, err := store.Read("session-a")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(read) != string(original) {
		t.Errorf("Content mismatch before encryption")
	}

	if err := store.EnableEncryption(passphrase); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	if !store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return true")
	}

	rawData, _ := os.ReadFile(filepath.Join(dir, "session-a.json"))
	if !isAgeEncrypted(rawData) {
		t.Error("Document should be encrypted on disk")
	}

	read, err = store.Read("session-a")
	if err != nil {
		t.Fatalf("Failed to read encrypted document: %v", err)
	}
	if string(read) != string(original) {
		t.Errorf("Content mismatch after encryption: got %q, want %q", read, original)
	}

	store.Lock()
	if _, err := store.Read("session-a"); !errors.Is(err, ErrLocked) {
		t.Errorf("Read while locked: got %v, want ErrLocked", err)
	}
	if err := store.Write("session-b", original); !errors.Is(err, ErrLocked) {
		t.Errorf("Write while locked: got %v, want ErrLocked", err)
	}

	if err := store.Unlock(passphrase); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	read, err = store.Read("session-a")
	if err != nil || string(read) != string(original) {
		t.Errorf("Content mismatch after unlock: %q, %v", read, err)
	}

	if err := store.DisableEncryption(passphrase); err != nil {
		t.Fatalf("Failed to disable encryption: %v", err)
	}
	if store.IsEncrypted() {
		t.Error("Expected IsEncrypted() to return false after disable")
	}

	rawData, _ = os.ReadFile(filepath.Join(dir, "session-a.json"))
	if string(rawData) != string(original) {
		t.Errorf("Raw content mismatch after decryption")
	}
}

func TestReopenDetectsEncryption(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	if err := store.EnableEncryption(passphrase); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	if !reopened.IsEncrypted() || reopened.IsUnlocked() {
		t.Error("Reopened storage should be encrypted and locked")
	}
	if err := reopened.Unlock(passphrase); err != nil {
		t.Fatalf("Failed to unlock reopened storage: %v", err)
	}
	if !reopened.IsUnlocked() {
		t.Error("Expected unlocked storage")
	}
}

func TestWrongPassphrase(t *testing.T) {
	store, _ := New(t.TempDir())

	if err := store.Write("draft", []byte(`{}`)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := store.EnableEncryption("correctpassphrase"); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}
	store.Lock()

	if err := store.Unlock("wrongpassphrase"); !errors.Is(err, ErrIncorrectPassphrase) {
		t.Errorf("Unlock with wrong passphrase: got %v", err)
	}
	if err := store.DisableEncryption("wrongpassphrase"); !errors.Is(err, ErrIncorrectPassphrase) {
		t.Errorf("DisableEncryption with wrong passphrase: got %v", err)
	}
}

func TestPassphraseTooShort(t *testing.T) {
	store, _ := New(t.TempDir())

	if err := store.EnableEncryption("short"); err == nil {
		t.Error("Expected error for short passphrase")
	}
}

func TestNewDocumentsEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	if err := store.EnableEncryption(passphrase); err != nil {
		t.Fatalf("Failed to enable encryption: %v", err)
	}

	content := []byte(`{"no_of_dependents":"2"}`)
	if err := store.Write("new", content); err != nil {
		t.Fatalf("Failed to write new document: %v", err)
	}

	rawData, _ := os.ReadFile(filepath.Join(dir, "new.json"))
	if !isAgeEncrypted(rawData) {
		t.Error("New document should be encrypted on disk")
	}
	read, err := store.Read("new")
	if err != nil {
		t.Fatalf("Failed to read new document: %v", err)
	}
	if string(read) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", read, content)
	}
}

func TestListDeleteAndMissing(t *testing.T) {
	store, _ := New(t.TempDir())

	for _, name := range []string{"b", "a"} {
		if err := store.Write(name, []byte(`{}`)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("List = %v, want [a b]", names)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Errorf("Deleting a missing document should succeed, got %v", err)
	}
	if _, err := store.Read("a"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read of deleted document: got %v, want fs.ErrNotExist", err)
	}
	if _, err := store.ModTime("b"); err != nil {
		t.Errorf("ModTime failed: %v", err)
	}
}

func TestRejectsUnsafeNames(t *testing.T) {
	store, _ := New(t.TempDir())

	for _, name := range []string{"", "..", "../escape", "a/b", `a\b`, ".encrypted"} {
		if err := store.Write(name, []byte(`{}`)); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Write(%q): got %v, want ErrInvalidName", name, err)
		}
	}
}

func TestConcurrentWritesSameDocument(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Write("session", []byte(fmt.Sprintf(`{"writer":%d}`, i)))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Write failed: %v", err)
		}
	}

	data, err := store.Read("session")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"writer":`) {
		t.Errorf("document corrupted: %q", data)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
