// Package engine models the exported surface of a compiled barcode
// scanning engine that lives in its own linear memory.
//
// Callers never share Go values with the engine. They allocate byte ranges in
// the engine heap, pass 32-bit addresses across the boundary and read results
// back through bounds-checked views of the engine's symbol records:
//
//	buf, _ := eng.Malloc(w * h)
//	copy(eng.Memory()[buf:], luma)
//	img, _ := eng.ImageCreate(w, h, engine.FourCCY800, buf, w*h, 1)
//	n, _ := eng.ImageScannerScan(ctx, scanner, img)
//	set, _ := eng.ImageGetSymbols(img)
//	_ = engine.WalkSymbols(eng.Memory(), set, visit)
//
// The ZXing type implements the surface in pure Go on top of a Heap.
package engine
