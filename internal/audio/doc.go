// Package audio provides channel-addressed sound playback.
// It uses the beep library to decode WAV, OGG, and MP3 files into memory
// and mixes any number of channels through a single speaker, each with its
// own volume and stop control.
package audio
