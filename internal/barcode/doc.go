// Package barcode wraps the gozxing decoders behind a small Backend
// interface. The same backend serves two callers: the decoding engine,
// which works on Y800 luma planes, and the host detector, which mimics a
// platform shape-detection API on RGBA snapshots.
package barcode
