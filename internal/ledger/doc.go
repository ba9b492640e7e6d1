// Package ledger persists the set of images that have already been turned into
// motion photos.
//
// The ledger is a single JSON document mapping an image's absolute path to the
// video it was paired with (or null) and the completion time in epoch
// seconds:
//
//	{
//	  "/photos/IMG_0001.HEIC": {"video": "/photos/IMG_0001.MOV", "timestamp": 1718000000.5}
//	}
//
// Open reads the file once; a missing file is an empty ledger, anything that
// does not decode is an error. Every Record rewrites the whole file in place
// while holding the ledger mutex, so all goroutines in one process observe a
// consistent mapping. Nothing is promised across processes, and a crash in the
// middle of a write can leave a truncated file that the next Open rejects.
package ledger
