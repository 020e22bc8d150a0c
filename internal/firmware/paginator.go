// Package firmware turns a sparse hex-decoded image into the ordered
// sequence of fixed-size page writes a bootloader consumes.
package firmware

import (
	"sort"

	"github.com/stephenkingston/avrman/internal/hexfile"
)

// erasedFlashValue is what a page-erase leaves behind on AVR flash.
const erasedFlashValue = 0xFF

// PageWrite is one page-sized program unit: byteAddress == pageIndex *
// len(Payload), and every byte of Payload not present in the source image
// is the erased-flash value.
type PageWrite struct {
	PageIndex   int
	ByteAddress uint16
	Payload     []byte
}

// Paginate groups img into the ordered sequence of PageWrite values
// covering every page that contains at least one decoded byte. Pages with
// no decoded bytes are skipped entirely. pageSize must be a power of two.
func Paginate(img hexfile.Image, pageSize int) []PageWrite {
	touched := make(map[int]bool)
	for addr := range img {
		touched[int(addr)/pageSize] = true
	}

	pages := make([]int, 0, len(touched))
	for p := range touched {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	writes := make([]PageWrite, 0, len(pages))
	for _, p := range pages {
		base := p * pageSize
		payload := make([]byte, pageSize)
		for i := 0; i < pageSize; i++ {
			if b, ok := img[uint16(base+i)]; ok {
				payload[i] = b
			} else {
				payload[i] = erasedFlashValue
			}
		}
		writes = append(writes, PageWrite{
			PageIndex:   p,
			ByteAddress: uint16(base),
			Payload:     payload,
		})
	}
	return writes
}
