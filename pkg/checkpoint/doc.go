// Package checkpoint provides functionality for saving and resuming asset
// download progress.
//
// The checkpoint system allows a download run to resume after interruptions
// such as network failures, rate limits, or manual stops. It tracks:
//   - The index of the last fully processed item
//   - Downloaded assets (to avoid duplicates)
//   - Overall progress statistics
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/stacsearch/checkpoints/
//   - macOS: ~/Library/Application Support/stacsearch/checkpoints/
//   - Windows: %APPDATA%/stacsearch/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package checkpoint
