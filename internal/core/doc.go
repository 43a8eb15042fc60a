// Package core converts registry export files into the normalized output
// format.
//
// This package holds the conversion pipeline independent of any transport.
// The CLI and the HTTP API both drive it through a [Converter].
//
// # Pipeline
//
// A conversion streams the input with memory bounded by one row:
//
//  1. The raw bytes are counted and decoded from the input encoding
//     (UTF-16 with BOM detection by default)
//  2. The first [Options.SkipRows] records are discarded as headers
//  3. Each data row becomes a [registry.Record], which normalizes every field
//  4. Records failing the required-field policy are skipped and reported
//  5. The row is rendered in the output dialect and encoded (Latin-1 by
//     default); a row the encoding cannot represent is skipped and reported
//  6. Written records are handed to the optional [Sink]
//
// Row problems are collected as [FailedRow] entries on the
// [ConversionResult] and never abort the run. Read, write and sink failures
// do, as does cancellation.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError]:
//
//   - FILE001-FILE007: input and output file problems
//   - CNV001-CNV008: conversion problems
//   - UPL001-UPL005: request problems (busy, cancelled, timeout, rate limited)
//   - DB001-DB006: database and run history problems
//
// # Concurrency
//
// A [Converter] may be shared. The HTTP API bounds parallel conversions
// with a [ConversionLimiter].
package core
