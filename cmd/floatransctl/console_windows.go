//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const codePageUTF8 = 65001

// setConsoleUTF8 switches the console to UTF-8 so translations in CJK
// scripts print correctly.
func setConsoleUTF8() {
	if err := windows.SetConsoleOutputCP(codePageUTF8); err != nil {
		slog.Debug("[ctl] SetConsoleOutputCP failed", "error", err)
	}
	if err := windows.SetConsoleCP(codePageUTF8); err != nil {
		slog.Debug("[ctl] SetConsoleCP failed", "error", err)
	}
}
