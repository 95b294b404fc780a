package tui

import "github.com/gdamore/tcell/v3"

// Intent is a user action decoded from a key press.
type Intent int

const (
	IntentNone Intent = iota
	IntentQuit
	IntentNavigateUp
	IntentNavigateDown
	IntentSelect
	IntentDetails
	IntentTheme
	IntentRescan
)

// intentFor maps a key string to an intent. Arrow keys are handled by the
// table itself.
func intentFor(key string) Intent {
	switch key {
	case "q", "Q":
		return IntentQuit
	case "k":
		return IntentNavigateUp
	case "j":
		return IntentNavigateDown
	case " ", "d", "D":
		return IntentSelect
	case "i", "I":
		return IntentDetails
	case "t", "T":
		return IntentTheme
	case "s", "S":
		return IntentRescan
	}
	return IntentNone
}

func (a *App) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if a.showDetail || a.showConfirm || a.showTheme || a.showQuit {
		// vi key binding for modal button selection
		switch event.Str() {
		case "l":
			return tcell.NewEventKey(tcell.KeyRight, tcell.KeyNames[tcell.KeyRight], tcell.ModNone)
		case "h":
			return tcell.NewEventKey(tcell.KeyLeft, tcell.KeyNames[tcell.KeyLeft], tcell.ModNone)
		}
		return event
	}

	switch intentFor(event.Str()) {
	case IntentQuit:
		if a.IsDeleting() {
			a.quitModal.SetText("Deletions are still running.")
			a.showQuit = true
			a.setRoot(a.quitModal, false)
			return nil
		}
		a.Stop()
		a.app.Stop()
		return nil
	case IntentNavigateUp:
		return tcell.NewEventKey(tcell.KeyUp, tcell.KeyNames[tcell.KeyUp], tcell.ModNone)
	case IntentNavigateDown:
		return tcell.NewEventKey(tcell.KeyDown, tcell.KeyNames[tcell.KeyDown], tcell.ModNone)
	case IntentSelect:
		a.confirmDelete()
		return nil
	case IntentDetails:
		a.showItemDetail()
		return nil
	case IntentTheme:
		a.showThemeSelector()
		return nil
	case IntentRescan:
		if !a.IsScanning() && !a.IsDeleting() {
			a.startScanning()
		}
		return nil
	}

	return event
}
