// Package hash provides fast hashing utilities for cached payloads.
//
// Durable-tier payload files carry a CRC32-Castagnoli (CRC32C) checksum so
// that bit rot or truncated writes are detected on read and treated as a
// cache miss instead of serving corrupt media. CRC32C is hardware
// accelerated on x86 (SSE4.2) and ARM (CRC extension) and is the same
// polynomial used by iSCSI, Btrfs, RocksDB and LevelDB.
//
// This is corruption detection only; it is not a cryptographic integrity
// check of fetched content.
package hash
