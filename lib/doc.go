// Package lib provides small, self-contained raw-memory helpers shared
// by the allocator's components. Functions here shall not depend on
// anything other than the standard library.
package lib
