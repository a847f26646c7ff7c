// Package tts turns text into playable tracks with ElevenLabs.
//
// Clips are uploaded to blob storage and exposed through presigned URLs so
// either audio transport can fetch them like any other stream.
package tts
