// Package sizeclass builds the allocator's Size-Class Table (SCT): the
// immutable, process-wide table mapping a requested byte count to a
// (block size, page count, blocks-per-span) triple, chosen once at
// startup to minimize waste. The packing procedure below is modeled on
// github.com/prataprc/gostore/malloc's Blocksizes/SuitableSize, adapted
// to a page_count/block_count packing loop instead of a flat
// "grow block size until a target utilization is met" ratio.
package sizeclass
