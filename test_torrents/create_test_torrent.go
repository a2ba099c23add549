// Test script to create a simple torrent file for testing
package main

import (
	"crypto/sha1"
	"fmt"
	"os"

	"torrent-client/bencode"
)

func main() {
	testContent := "Hello, BitTorrent! This is a test file for our BitTorrent client."
	pieceLength := 32 // Very small for testing

	var pieces []byte
	for i := 0; i < len(testContent); i += pieceLength {
		end := i + pieceLength
		if end > len(testContent) {
			end = len(testContent)
		}
		hash := sha1.Sum([]byte(testContent[i:end]))
		pieces = append(pieces, hash[:]...)
	}

	info := bencode.NewDict()
	info.Set([]byte("name"), bencode.NewString([]byte("test-file.txt")))
	info.Set([]byte("length"), bencode.NewInteger(int64(len(testContent))))
	info.Set([]byte("piece length"), bencode.NewInteger(int64(pieceLength)))
	info.Set([]byte("pieces"), bencode.NewString(pieces))

	root := bencode.NewDict()
	root.Set([]byte("announce"), bencode.NewString([]byte("http://tracker.example.com:8080/announce")))
	root.Set([]byte("info"), info)

	data := bencode.Encode(root)

	if err := os.WriteFile("test.torrent", data, 0644); err != nil {
		fmt.Printf("failed to write torrent file: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("test-file.txt", []byte(testContent), 0644); err != nil {
		fmt.Printf("failed to write test file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Created test.torrent and test-file.txt")
	fmt.Printf("File size: %d bytes\n", len(testContent))
	fmt.Printf("Piece length: %d bytes\n", pieceLength)
	fmt.Printf("Number of pieces: %d\n", len(pieces)/20)
}
