package emu

import "github.com/hollowtile/gbcore/internal/cart"

// headerFor returns the cartridge title for window-title display.
func headerFor(rom []byte) (string, error) {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return "", err
	}
	return h.Title, nil
}
