// Package hash provides the CRC32-Castagnoli checksum attached to uploaded
// traces and reports.
//
// Object stores verify the checksum server-side, so a report that was
// corrupted in transit is rejected instead of stored:
//
//	input.ChecksumCRC32C = aws.String(hash.CRC32CBase64(data))
package hash
