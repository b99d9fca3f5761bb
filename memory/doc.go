// Package memory adapts wazero linear memory and guest allocators to
// codec.Memory so structures can be packed into and unpacked from a
// WebAssembly guest.
package memory
