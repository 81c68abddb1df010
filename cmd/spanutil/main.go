package main

import "fmt"
import "flag"

import "github.com/prataprc/spanalloc/sizeclass"
import "github.com/prataprc/spanalloc/vmm"

var options struct {
	pageSize    int64
	maxBlock    int64
	maxPages    int64
	headerSz    int64
	granularity int64
}

func argParse() {
	flag.Int64Var(&options.pageSize, "pagesize", int64(vmm.PageSize),
		"OS page size to pack against")
	flag.Int64Var(&options.maxBlock, "maxblock", 2*1024*1024,
		"largest block size the table should serve before oversize takes over")
	flag.Int64Var(&options.maxPages, "maxpages", 16,
		"largest page count a single span may occupy, before the granularity clamp")
	flag.Int64Var(&options.headerSz, "header", 64,
		"span header size in bytes, carved out of every span before packing")
	flag.Int64Var(&options.granularity, "granularity", 64*1024,
		"span mapping granularity; Build clamps maxpages so no class exceeds it")
	flag.Parse()
}

func main() {
	argParse()
	tellclasses()
}

// tellclasses prints the size-class table sizeclass.Build would hand
// the allocator for the given packing inputs, in the style of
// tools/pools/main.go's tellutilization: one line per class, plus the
// overhead ratio the packing procedure minimizes.
func tellclasses() {
	table := sizeclass.Build(options.pageSize, options.headerSz, options.maxBlock, options.maxPages, options.granularity)

	fmt.Printf("page-size %v, header %v, max-block %v, max-pages %v, granularity %v\n",
		options.pageSize, options.headerSz, options.maxBlock, options.maxPages, options.granularity)

	active := 0
	for i := 0; i < table.Len(); i++ {
		cls := table.ByIndex(i)
		if cls.BlockSize == 0 {
			continue
		}
		active++
		usable := cls.PageCount*options.pageSize - options.headerSz
		waste := usable - cls.BlockCount*cls.BlockSize
		ratio := float64(waste+options.headerSz) / float64(cls.BlockCount*cls.BlockSize)
		fmt.Printf("class %3d: block %6d  pages %3d  blocks %5d  waste %5d  ratio %.4f\n",
			i, cls.BlockSize, cls.PageCount, cls.BlockCount, waste, ratio)
	}
	fmt.Printf("total %v active size classes, %v table slots\n", active, table.Len())
	fmt.Printf("page counts in use: %v\n", table.PageCounts())
}
