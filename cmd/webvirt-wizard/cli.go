package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/auth"
	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
	"github.com/pzerone/webvirt-wizard/internal/guard"
	"github.com/pzerone/webvirt-wizard/internal/provisioning"
	"github.com/pzerone/webvirt-wizard/internal/result"
	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/pzerone/webvirt-wizard/internal/submission"
	"golang.org/x/term"
)

var errNotLoggedIn = errors.New("not logged in, run `webvirt-wizard login` first")

// operatorError reduces err to the line shown to the operator and keeps the
// detail in the debug log.
func operatorError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		slog.Debug("Command failed", "error", err)
		return errors.New(appErr.Message)
	}
	return err
}

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "Username (prompted when empty)")
	password := fs.String("password", "", "Password (prompted without echo when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	comps, err := newComponents()
	if err != nil {
		return err
	}

	creds := &auth.Credentials{Username: *username, Password: *password}
	*password = ""
	if err := promptCredentials(creds); err != nil {
		return err
	}

	s, err := comps.auth.Login(context.Background(), creds)
	if err != nil {
		return operatorError(err)
	}

	if name := session.Operator(s); name != "" {
		fmt.Printf("Logged in as %s\n", name)
	} else {
		fmt.Println("Logged in")
	}
	return nil
}

func promptCredentials(creds *auth.Credentials) error {
	reader := bufio.NewReader(os.Stdin)
	if creds.Username == "" {
		fmt.Fprint(os.Stderr, "Username: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return nil
		}
		creds.Username = strings.TrimSpace(line)
	}
	if creds.Password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			creds.Password = string(b)
		} else {
			line, _ := reader.ReadString('\n')
			creds.Password = strings.TrimRight(line, "\r\n")
		}
	}
	return nil
}

func runLogout() error {
	comps, err := newComponents()
	if err != nil {
		return err
	}
	if err := comps.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runStatus() error {
	comps, err := newComponents()
	if err != nil {
		return err
	}

	if !guard.New(comps.store).CanEnter() {
		fmt.Println("Not logged in")
		return nil
	}
	s, _, err := comps.store.Get()
	if err != nil {
		return err
	}
	if name := session.Operator(s); name != "" {
		fmt.Printf("Logged in as %s (%s token)\n", name, s.TokenType)
	} else {
		fmt.Printf("Logged in (%s token)\n", s.TokenType)
	}
	return nil
}

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "CSV file with first_name,last_name columns")
	cores := fs.String("cores", "", "CPU core count per user (>= 1)")
	memory := fs.String("memory", "", "Memory per user in MB (>= 512)")
	duration := fs.String("duration", "", "Account lifetime in hours, 0 disables expiry")
	prefix := fs.String("prefix", "", "Absolute home directory prefix, e.g. /mnt/ldapusers")
	export := fs.Bool("export", false, "Write the result to response-YYYY-MM-DD.csv")
	outDir := fs.String("out", ".", "Directory for the exported CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	comps, err := newComponents()
	if err != nil {
		return err
	}
	if !guard.New(comps.store).CanEnter() {
		return errNotLoggedIn
	}

	if *file == "" {
		return operatorError(apperr.Field(apperr.Validation, "file", "Please upload a valid CSV file."))
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *file, err)
	}
	name := filepath.Base(*file)
	declared := csvgrid.DeclaredMediaType(name, "")
	preview, err := csvgrid.Ingest(declared, data)
	if err != nil {
		return operatorError(err)
	}
	slog.Info("Loaded CSV", "file", name, "rows", len(preview.Rows()))

	req, err := provisioning.Validate(provisioning.Draft{
		CoreCount: *cores,
		Memory:    *memory,
		Duration:  *duration,
		Prefix:    *prefix,
	})
	if err != nil {
		return operatorError(err)
	}

	grid, err := comps.dispatcher.Submit(context.Background(), req, submission.File{
		Name:        name,
		ContentType: declared,
		Data:        data,
	})
	if err != nil {
		if errors.Is(err, submission.ErrSessionRejected) {
			return errors.New("the server rejected the stored session, run `webvirt-wizard login` again")
		}
		return operatorError(err)
	}

	if err := result.WriteTable(os.Stdout, grid); err != nil {
		return err
	}

	if *export {
		path := filepath.Join(*outDir, result.Filename(time.Now()))
		if err := os.WriteFile(path, []byte(result.Serialize(grid)), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("\nSaved %s\n", path)
	}
	return nil
}
