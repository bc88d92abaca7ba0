package commands

import (
	"CardKeeper/internal/bootstrap"
	"CardKeeper/internal/config"
	"CardKeeper/internal/service"
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// Logger подменяется в main.
var Logger = zap.NewNop().Sugar()

// openService собирает BackupService; в тестах может подменяться.
var openService = func(ctx context.Context, cfg *config.Config) (*service.BackupService, error) {
	return bootstrap.NewBackupService(ctx, cfg, Logger, nil)
}

// isTerminal сообщает, подключён ли stdin к терминалу.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type captureCmd struct{}

func (captureCmd) Name() string        { return "capture" }
func (captureCmd) Description() string { return "Encrypt a snapshot of the live store into the backup dir" }
func (captureCmd) Usage() string       { return "capture" }

func (captureCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := svc.Capture(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Encrypted backup written: %s (%d bytes)\n", a.Name, a.Size)
	return nil
}

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "List encrypted backups" }
func (listCmd) Usage() string       { return "list [page] [page_size]" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 2 {
		return ErrUsage
	}
	page, size := 1, 0
	var err error
	if len(args) > 0 {
		if page, err = strconv.Atoi(args[0]); err != nil {
			return ErrUsage
		}
	}
	if len(args) > 1 {
		if size, err = strconv.Atoi(args[1]); err != nil {
			return ErrUsage
		}
	}
	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	p, err := svc.List(page, size)
	if err != nil {
		return err
	}
	if len(p.Items) == 0 {
		fmt.Fprintln(Out, "No backups")
		return nil
	}
	for _, name := range p.Items {
		fmt.Fprintln(Out, name)
	}
	fmt.Fprintf(Out, "page %d, %d of %d\n", p.Page, len(p.Items), p.Total)
	return nil
}

type restoreCmd struct{}

func (restoreCmd) Name() string { return "restore" }
func (restoreCmd) Description() string {
	return "Overwrite the live store with a backup (stop the server first)"
}
func (restoreCmd) Usage() string { return "restore <artifact>" }

func (restoreCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	name := args[0]
	if !cfg.AssumeYes {
		if !isTerminal() {
			return errors.New("refusing to restore without --yes on a non-interactive input")
		}
		fmt.Fprintf(Out, "Restore %s over %s? Data written after the backup will be lost. Type 'yes' to continue: ", name, cfg.DatabasePath)
		answer, _ := bufio.NewReader(In).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			return errors.New("restore aborted")
		}
	}
	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := svc.Restore(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Restored %s (%d bytes) into %s\n", res.Artifact, res.Bytes, cfg.DatabasePath)
	return nil
}

type verifyCmd struct{}

func (verifyCmd) Name() string        { return "verify" }
func (verifyCmd) Description() string { return "Check that a backup decrypts with the current key" }
func (verifyCmd) Usage() string       { return "verify <artifact>" }

func (verifyCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := svc.Verify(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "OK %s (%d bytes)\n", a.Name, a.Size)
	return nil
}

func init() {
	RegisterCmd(captureCmd{})
	RegisterCmd(listCmd{})
	RegisterCmd(restoreCmd{})
	RegisterCmd(verifyCmd{})
}
