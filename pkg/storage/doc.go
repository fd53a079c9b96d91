// Package storage persists downloaded assets to the local filesystem.
//
// The Manager lays assets out as {base}/{collection}/{item}/{key}{ext},
// remembers what is already on disk so repeat downloads are skipped, and
// writes through a temporary file with an atomic rename so a crashed
// download never leaves a truncated asset behind.
package storage
