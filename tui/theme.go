package tui

import (
	"github.com/gdamore/tcell/v3"
	"github.com/riadafridishibly/npkill/scanner"
)

type Theme struct {
	Name     string
	bg       tcell.Color
	fg       tcell.Color
	headerBg tcell.Color
	headerFg tcell.Color
	footerBg tcell.Color
	footerFg tcell.Color
	sizeFg   tcell.Color
	buttonBg tcell.Color
	buttonFg tcell.Color
	modalBg  tcell.Color
	modalFg  tcell.Color

	// Status column colours.
	loading  tcell.Color
	ready    tcell.Color
	failed   tcell.Color
	deleting tcell.Color
	deleted  tcell.Color
}

func (t Theme) statusColor(s scanner.Status) tcell.Color {
	switch s {
	case scanner.StatusLoading:
		return t.loading
	case scanner.StatusReady:
		return t.ready
	case scanner.StatusError:
		return t.failed
	case scanner.StatusDeleting:
		return t.deleting
	case scanner.StatusDeleted:
		return t.deleted
	}
	return t.fg
}

// Keys match config.Themes.
var themes = map[string]Theme{
	"nord": {
		Name:     "Nord",
		bg:       tcell.NewRGBColor(46, 52, 64),
		fg:       tcell.NewRGBColor(216, 222, 233),
		headerBg: tcell.NewRGBColor(129, 161, 193),
		headerFg: tcell.NewRGBColor(46, 52, 64),
		footerBg: tcell.NewRGBColor(67, 76, 94),
		footerFg: tcell.NewRGBColor(216, 222, 233),
		sizeFg:   tcell.NewRGBColor(235, 203, 139),
		buttonBg: tcell.NewRGBColor(129, 161, 193),
		buttonFg: tcell.NewRGBColor(46, 52, 64),
		modalBg:  tcell.NewRGBColor(46, 52, 64),
		modalFg:  tcell.NewRGBColor(216, 222, 233),
		loading:  tcell.NewRGBColor(136, 192, 208),
		ready:    tcell.NewRGBColor(163, 190, 140),
		failed:   tcell.NewRGBColor(191, 97, 106),
		deleting: tcell.NewRGBColor(235, 203, 139),
		deleted:  tcell.NewRGBColor(76, 86, 106),
	},
	"gruvbox-dark": {
		Name:     "Gruvbox Dark",
		bg:       tcell.NewRGBColor(40, 40, 40),
		fg:       tcell.NewRGBColor(235, 219, 178),
		headerBg: tcell.NewRGBColor(214, 93, 14),
		headerFg: tcell.NewRGBColor(60, 56, 54),
		footerBg: tcell.NewRGBColor(60, 56, 54),
		footerFg: tcell.NewRGBColor(235, 219, 178),
		sizeFg:   tcell.NewRGBColor(215, 153, 33),
		buttonBg: tcell.NewRGBColor(214, 93, 14),
		buttonFg: tcell.NewRGBColor(60, 56, 54),
		modalBg:  tcell.NewRGBColor(40, 40, 40),
		modalFg:  tcell.NewRGBColor(235, 219, 178),
		loading:  tcell.NewRGBColor(69, 133, 136),
		ready:    tcell.NewRGBColor(152, 151, 26),
		failed:   tcell.NewRGBColor(204, 36, 29),
		deleting: tcell.NewRGBColor(215, 153, 33),
		deleted:  tcell.NewRGBColor(146, 131, 116),
	},
	"catppuccin": {
		Name:     "Catppuccin Mocha",
		bg:       tcell.NewRGBColor(30, 30, 46),
		fg:       tcell.NewRGBColor(205, 214, 244),
		headerBg: tcell.NewRGBColor(137, 180, 250),
		headerFg: tcell.NewRGBColor(30, 30, 46),
		footerBg: tcell.NewRGBColor(49, 50, 68),
		footerFg: tcell.NewRGBColor(205, 214, 244),
		sizeFg:   tcell.NewRGBColor(249, 226, 175),
		buttonBg: tcell.NewRGBColor(137, 180, 250),
		buttonFg: tcell.NewRGBColor(30, 30, 46),
		modalBg:  tcell.NewRGBColor(30, 30, 46),
		modalFg:  tcell.NewRGBColor(205, 214, 244),
		loading:  tcell.NewRGBColor(137, 180, 250),
		ready:    tcell.NewRGBColor(166, 227, 161),
		failed:   tcell.NewRGBColor(243, 139, 168),
		deleting: tcell.NewRGBColor(250, 179, 135),
		deleted:  tcell.NewRGBColor(110, 109, 128),
	},
	"dracula": {
		Name:     "Dracula",
		bg:       tcell.NewRGBColor(40, 42, 54),
		fg:       tcell.NewRGBColor(248, 248, 242),
		headerBg: tcell.NewRGBColor(189, 147, 249),
		headerFg: tcell.NewRGBColor(40, 42, 54),
		footerBg: tcell.NewRGBColor(68, 71, 90),
		footerFg: tcell.NewRGBColor(248, 248, 242),
		sizeFg:   tcell.NewRGBColor(255, 184, 108),
		buttonBg: tcell.NewRGBColor(189, 147, 249),
		buttonFg: tcell.NewRGBColor(40, 42, 54),
		modalBg:  tcell.NewRGBColor(40, 42, 54),
		modalFg:  tcell.NewRGBColor(248, 248, 242),
		loading:  tcell.NewRGBColor(139, 233, 253),
		ready:    tcell.NewRGBColor(80, 250, 123),
		failed:   tcell.NewRGBColor(255, 85, 85),
		deleting: tcell.NewRGBColor(241, 250, 140),
		deleted:  tcell.NewRGBColor(98, 114, 164),
	},
}
