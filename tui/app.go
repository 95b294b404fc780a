package tui

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"codeberg.org/tslocum/cview"
	"github.com/riadafridishibly/npkill/config"
	"github.com/riadafridishibly/npkill/scanner"
)

const deleteWorkers = 2

type App struct {
	app *cview.Application
	cfg config.Config

	// Current scan; replaced on rescan.
	scanner atomic.Pointer[scanner.Scanner]

	flex         *cview.Flex
	header       *cview.TextView
	footer       *cview.TextView
	table        *cview.Table
	panels       *cview.Panels
	detailModal  *cview.Modal
	confirmModal *cview.Modal
	themeModal   *cview.Modal
	quitModal    *cview.Modal

	rootPath    string
	userHomeDir string
	showDetail  bool
	showConfirm bool
	showTheme   bool
	showQuit    bool

	// Last rendered snapshot and the scanner it came from; touched on the
	// UI goroutine only. Handles in snap are only valid for snapScanner.
	snap        scanner.Snapshot
	snapScanner *scanner.Scanner
	// Footer message from the latest scan event, until footerUntil.
	footerNote  string
	footerUntil time.Time

	freeSpace atomic.Uint64

	uiUpdates chan func()

	currentTheme Theme

	deleteQueue    chan deleteRequest
	deleteDone     chan *deleteResult
	activeDeletes  atomic.Int64
	pendingDeletes atomic.Int64

	ctx context.Context
}

type deleteRequest struct {
	sc     *scanner.Scanner
	handle scanner.Handle
	path   string
}

type deleteResult struct {
	path string
	err  error
}

func (a *App) switchTheme(themeName string) {
	if th, ok := themes[themeName]; ok {
		a.currentTheme = th
	}
}

func (a *App) applyTheme() {
	theme := a.currentTheme

	a.header.SetBackgroundColor(theme.headerBg)
	a.header.SetTextColor(theme.headerFg)

	a.footer.SetBackgroundColor(theme.footerBg)
	a.footer.SetTextColor(theme.footerFg)

	for _, m := range []*cview.Modal{a.detailModal, a.confirmModal, a.themeModal, a.quitModal} {
		m.SetBackgroundColor(theme.modalBg)
		m.SetTextColor(theme.modalFg)
		m.SetButtonBackgroundColor(theme.buttonBg)
		m.SetButtonTextColor(theme.buttonFg)
	}

	a.table.SetBackgroundColor(theme.bg)
	a.panels.SetBackgroundColor(theme.bg)

	a.trySendUIUpdate(func() { a.render(a.snapScanner, a.snap) })
}

func NewApp(scanPath string, cfg config.Config) *App {
	app := cview.NewApplication()

	theme, ok := themes[cfg.Theme]
	if !ok {
		theme = themes[config.DefaultTheme]
	}

	header := cview.NewTextView()
	header.SetDynamicColors(true)
	header.SetTextAlign(cview.AlignCenter)

	footer := cview.NewTextView()
	footer.SetDynamicColors(true)
	footer.SetTextAlign(cview.AlignCenter)

	detailModal := cview.NewModal()
	detailModal.AddButtons([]string{"Okay"})

	confirmModal := cview.NewModal()
	confirmModal.AddButtons([]string{"Delete", "Cancel", "Don't ask again"})

	themeModal := cview.NewModal()
	themeModal.AddButtons(config.Themes)

	quitModal := cview.NewModal()
	quitModal.AddButtons([]string{"Wait", "Force Quit"})

	panels := cview.NewPanels()
	table := cview.NewTable()
	table.SetBorder(false)
	table.SetBorders(false)
	table.SetSelectable(true, false)
	table.SetSeparator(' ')
	table.SetFixed(1, 0)
	panels.AddPanel("table", table, true, true)

	flex := cview.NewFlex()
	flex.SetDirection(cview.FlexRow)
	flex.AddItem(header, 1, 0, false)
	flex.AddItem(panels, 0, 1, true)
	flex.AddItem(footer, 1, 0, false)

	a := &App{
		app:          app,
		cfg:          cfg,
		flex:         flex,
		header:       header,
		footer:       footer,
		detailModal:  detailModal,
		confirmModal: confirmModal,
		themeModal:   themeModal,
		quitModal:    quitModal,
		rootPath:     scanPath,
		panels:       panels,
		table:        table,
		uiUpdates:    make(chan func(), 128),
		currentTheme: theme,
		deleteQueue:  make(chan deleteRequest, 100),
		deleteDone:   make(chan *deleteResult, 100),
		ctx:          context.Background(),
	}

	if cfg.ReplaceHomeWithTilde {
		if home, err := os.UserHomeDir(); err == nil {
			a.userHomeDir = home
		} else {
			log.Println("Error getting home:", err)
		}
	}

	app.SetInputCapture(a.handleInput)

	detailModal.SetDoneFunc(func(_ int, _ string) {
		a.showDetail = false
		a.setRoot(a.flex, true)
	})

	confirmModal.SetDoneFunc(func(_ int, buttonLabel string) {
		a.showConfirm = false
		a.setRoot(a.flex, true)

		switch buttonLabel {
		case "Delete":
			a.deleteSelectedItem()
		case "Don't ask again":
			a.cfg.ConfirmDelete = false
			a.deleteSelectedItem()
		}
	})

	themeModal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		a.showTheme = false
		a.setRoot(a.flex, true)

		if buttonIndex >= 0 && buttonIndex < len(config.Themes) {
			a.switchTheme(buttonLabel)
			a.applyTheme()
		}
	})

	quitModal.SetDoneFunc(func(_ int, buttonLabel string) {
		a.showQuit = false
		a.setRoot(a.flex, true)

		if buttonLabel == "Force Quit" {
			a.Stop()
			a.app.Stop()
		}
	})

	header.SetText(headerStartupStatus(a.rootPath))
	footer.SetText(footerStatusMenu())

	a.setRoot(flex, true)
	a.applyTheme()

	return a
}

func (a *App) showThemeSelector() {
	a.themeModal.SetText(fmt.Sprintf("Select Theme (Current: %s)", a.currentTheme.Name))
	a.showTheme = true
	a.setRoot(a.themeModal, false)
}

func (a *App) IsDeleting() bool {
	return a.activeDeletes.Load() > 0 || a.pendingDeletes.Load() > 0
}

func (a *App) startDeleteWorkers(workers int) {
	for range workers {
		go a.deleteWorker()
	}
	go a.processDeleteResults()
}

func (a *App) deleteWorker() {
	for req := range a.deleteQueue {
		a.activeDeletes.Add(1)

		displayPath := a.replaceHomeWithTilde(req.path)
		a.trySendUIUpdate(func() { a.showFooterNote(footerStatusDeleting(displayPath)) })

		err := req.sc.Delete(req.handle, req.path)

		a.activeDeletes.Add(-1)
		a.deleteDone <- &deleteResult{path: req.path, err: err}
	}
}

func (a *App) processDeleteResults() {
	for result := range a.deleteDone {
		a.pendingDeletes.Add(-1)
		displayPath := a.replaceHomeWithTilde(result.path)

		if result.err != nil {
			log.Printf("Error deleting dir: %s: error: %v", result.path, result.err)
			a.trySendUIUpdate(func() { a.showFooterNote(footerStatusDeleteError(displayPath, result.err)) })
			continue
		}
		a.trySendUIUpdate(func() { a.showFooterNote(footerStatusDeleted(displayPath)) })
	}
}

// Stop cancels the running scan, if any.
func (a *App) Stop() {
	if sc := a.scanner.Load(); sc != nil {
		sc.Stop()
	}
}

func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	log.Println("CurrentTheme:", a.currentTheme.Name)
	go func() {
		for updateFn := range a.uiUpdates {
			a.app.QueueUpdateDraw(updateFn)
		}
	}()

	a.startDeleteWorkers(deleteWorkers)
	a.startScanning()
	go a.refreshLoop(ctx)

	return a.app.Run()
}
