// Package page implements the slotted, bitmap-header heap page described
// in spec.md §4.1/§6.
package page

import (
	"sync"

	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/types"
)

// DefaultPageSize is the default page byte size. Mutable only for tests,
// mirroring original_source's BufferPool.setPageSize/resetPageSize.
const DefaultPageSize = 4096

var pageSize = DefaultPageSize

// PageSize returns the page byte size currently in effect.
func PageSize() int { return pageSize }

// SetPageSizeForTest overrides the page byte size. Tests only.
func SetPageSizeForTest(n int) { pageSize = n }

// ResetPageSize restores the default page byte size. Tests only.
func ResetPageSize() { pageSize = DefaultPageSize }

/*
Heap page binary layout (all integers little-endian):

	[ header bitmap: ceil(numSlots/8) bytes ][ numSlots * tupleBytes ]

The header bitmap is LSB-first per byte: bit 0 of byte 0 is slot 0, bit 1
of byte 0 is slot 1, and so on. A slot is occupied iff its header bit is
set. numSlots = floor((pageBytes*8) / (tupleBytes*8 + 1)), the largest
slot count whose bitmap-plus-tuple-data still fits in pageBytes.
*/

// NumSlots returns the slot count a page of pageBytes can hold for
// tuples of tupleBytes each.
func NumSlots(pageBytes, tupleBytes int) int {
	return (pageBytes * 8) / (tupleBytes*8 + 1)
}

// HeaderBytes returns the bitmap header size for numSlots slots.
func HeaderBytes(numSlots int) int {
	return (numSlots + 7) / 8
}

// HeapPage is one fixed-size page of a heap file: a header bitmap
// followed by a packed array of tuple slots.
type HeapPage struct {
	mu sync.RWMutex

	id     types.PageId
	schema *types.Schema

	tupleBytes  int
	numSlots    int
	headerBytes int

	data []byte

	dirtyBy     *types.TransactionID
	beforeImage []byte
}

// NewHeapPage parses bytes into a HeapPage. Fails if len(bytes) does not
// equal the configured page size, or if a slot's bytes do not decode.
func NewHeapPage(pid types.PageId, schema *types.Schema, data []byte) (*HeapPage, error) {
	if len(data) != pageSize {
		return nil, dberrors.NewDbError("heap page: wrong byte length")
	}
	tupleBytes := schema.ByteSize()
	numSlots := NumSlots(pageSize, tupleBytes)
	headerBytes := HeaderBytes(numSlots)

	p := &HeapPage{
		id:          pid,
		schema:      schema,
		tupleBytes:  tupleBytes,
		numSlots:    numSlots,
		headerBytes: headerBytes,
		data:        append([]byte(nil), data...),
	}

	// Validate every occupied slot decodes; NewTuple below would be
	// wasted work if we deferred this to the iterator.
	for i := 0; i < numSlots; i++ {
		if !p.slotOccupied(i) {
			continue
		}
		if _, err := p.decodeTuple(i); err != nil {
			return nil, dberrors.WrapDbError(err, "heap page: corrupt slot")
		}
	}

	p.setBeforeImageLocked()
	return p, nil
}

// NewEmptyHeapPage allocates a fresh, all-empty page for pid.
func NewEmptyHeapPage(pid types.PageId, schema *types.Schema) *HeapPage {
	tupleBytes := schema.ByteSize()
	numSlots := NumSlots(pageSize, tupleBytes)
	headerBytes := HeaderBytes(numSlots)

	p := &HeapPage{
		id:          pid,
		schema:      schema,
		tupleBytes:  tupleBytes,
		numSlots:    numSlots,
		headerBytes: headerBytes,
		data:        make([]byte, pageSize),
	}
	p.setBeforeImageLocked()
	return p
}

// ID returns the page's identity.
func (p *HeapPage) ID() types.PageId { return p.id }

// Schema returns the page's schema (by reference to the catalog).
func (p *HeapPage) Schema() *types.Schema { return p.schema }

func (p *HeapPage) slotOccupied(slot int) bool {
	byteIdx := slot / 8
	bitIdx := uint(slot % 8)
	return p.data[byteIdx]&(1<<bitIdx) != 0
}

func (p *HeapPage) setSlotBit(slot int, occupied bool) {
	byteIdx := slot / 8
	bitIdx := uint(slot % 8)
	if occupied {
		p.data[byteIdx] |= 1 << bitIdx
	} else {
		p.data[byteIdx] &^= 1 << bitIdx
	}
}

func (p *HeapPage) slotOffset(slot int) int {
	return p.headerBytes + slot*p.tupleBytes
}

func (p *HeapPage) decodeTuple(slot int) (*types.Tuple, error) {
	off := p.slotOffset(slot)
	buf := p.data[off : off+p.tupleBytes]

	fields := make([]types.Field, p.schema.NumFields())
	pos := 0
	for i := 0; i < p.schema.NumFields(); i++ {
		ft, _ := p.schema.FieldType(i)
		switch ft {
		case types.IntType:
			f, err := types.DecodeIntField(buf[pos:])
			if err != nil {
				return nil, err
			}
			fields[i] = f
			pos += types.IntBytes
		case types.StringType:
			f, err := types.DecodeStringField(buf[pos:])
			if err != nil {
				return nil, err
			}
			fields[i] = f
			pos += types.StringBytes
		default:
			return nil, dberrors.NewDbError("heap page: unknown field type")
		}
	}
	t, err := types.NewTuple(p.schema, fields)
	if err != nil {
		return nil, err
	}
	rid := types.RecordId{PageID: p.id, SlotIndex: slot}
	t.SetRecordID(&rid)
	return t, nil
}

func (p *HeapPage) encodeTuple(slot int, t *types.Tuple) error {
	off := p.slotOffset(slot)
	buf := p.data[off : off+p.tupleBytes]
	pos := 0
	for i := 0; i < p.schema.NumFields(); i++ {
		f, err := t.Field(i)
		if err != nil {
			return err
		}
		if err := f.Serialize(buf[pos:]); err != nil {
			return err
		}
		pos += f.Type().Bytes()
	}
	return nil
}

// GetNumEmptySlots returns the number of unoccupied slots.
func (p *HeapPage) GetNumEmptySlots() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	empty := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.slotOccupied(i) {
			empty++
		}
	}
	return empty
}

// InsertTuple requires t's schema equal the page's schema and t carry no
// RecordId. It writes t into the lowest-index empty slot and sets t's
// RecordId.
func (p *HeapPage) InsertTuple(t *types.Tuple) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !t.Schema().Equal(p.schema) {
		return dberrors.NewDbError("heap page: tuple schema does not match page schema")
	}
	if t.RecordID() != nil {
		return dberrors.NewDbError("heap page: tuple already has a RecordId")
	}

	slot := -1
	for i := 0; i < p.numSlots; i++ {
		if !p.slotOccupied(i) {
			slot = i
			break
		}
	}
	if slot == -1 {
		return dberrors.NewDbError("heap page: no empty slot")
	}

	if err := p.encodeTuple(slot, t); err != nil {
		return err
	}
	p.setSlotBit(slot, true)
	rid := types.RecordId{PageID: p.id, SlotIndex: slot}
	t.SetRecordID(&rid)
	return nil
}

// DeleteTuple requires t.RecordId name this page and an occupied slot. It
// clears the header bit; the slot bytes remain but are logically absent.
func (p *HeapPage) DeleteTuple(t *types.Tuple) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rid := t.RecordID()
	if rid == nil || rid.PageID != p.id {
		return dberrors.NewDbError("heap page: tuple does not belong to this page")
	}
	if rid.SlotIndex < 0 || rid.SlotIndex >= p.numSlots || !p.slotOccupied(rid.SlotIndex) {
		return dberrors.NewDbError("heap page: slot is not occupied")
	}
	p.setSlotBit(rid.SlotIndex, false)
	return nil
}

// Iterator returns a lazy, non-restartable sequence of the page's
// occupied tuples in ascending slot-index order.
func (p *HeapPage) Iterator() *TupleIterator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &TupleIterator{page: p, next: 0}
}

// TupleIterator walks a HeapPage's occupied slots in order. Not
// restartable; call HeapPage.Iterator again to rewind.
type TupleIterator struct {
	page *HeapPage
	next int
}

// HasNext reports whether another tuple remains.
func (it *TupleIterator) HasNext() bool {
	it.page.mu.RLock()
	defer it.page.mu.RUnlock()
	for i := it.next; i < it.page.numSlots; i++ {
		if it.page.slotOccupied(i) {
			return true
		}
	}
	return false
}

// Next returns the next occupied tuple, or an error if none remains.
func (it *TupleIterator) Next() (*types.Tuple, error) {
	it.page.mu.RLock()
	defer it.page.mu.RUnlock()
	for ; it.next < it.page.numSlots; it.next++ {
		if it.page.slotOccupied(it.next) {
			t, err := it.page.decodeTuple(it.next)
			it.next++
			return t, err
		}
	}
	return nil, dberrors.NewNoSuchElement("heap page iterator exhausted")
}

// MarkDirty sets or clears the dirty-by marker.
func (p *HeapPage) MarkDirty(dirty bool, tid types.TransactionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dirty {
		t := tid
		p.dirtyBy = &t
	} else {
		p.dirtyBy = nil
	}
}

// IsDirty returns the transaction that last dirtied this page, or nil.
func (p *HeapPage) IsDirty() *types.TransactionID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dirtyBy
}

// GetPageData serializes the page to its on-disk byte representation.
func (p *HeapPage) GetPageData() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.data...)
}

// GetBeforeImage returns the snapshot taken when the page last became
// clean.
func (p *HeapPage) GetBeforeImage() *HeapPage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	before := &HeapPage{
		id:          p.id,
		schema:      p.schema,
		tupleBytes:  p.tupleBytes,
		numSlots:    p.numSlots,
		headerBytes: p.headerBytes,
		data:        append([]byte(nil), p.beforeImage...),
	}
	return before
}

// SetBeforeImage snapshots the page's current bytes as its new
// before-image.
func (p *HeapPage) SetBeforeImage() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setBeforeImageLocked()
}

func (p *HeapPage) setBeforeImageLocked() {
	p.beforeImage = append([]byte(nil), p.data...)
}
