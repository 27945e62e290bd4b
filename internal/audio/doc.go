// Package audio plays the attention sound that accompanies a window shake.
// Sounds are decoded once with the beep library (WAV, OGG and MP3) and
// replayed from memory; when no sound can be played the terminal bell is
// written instead.
package audio
