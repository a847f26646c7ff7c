// Package opus turns audio sources into Opus frames for Discord voice.
//
// Frames travel as concatenated length-prefixed packets
// ([uint16 LE length][opus bytes]). No headers, no metadata.
//
// EncodeURL and Encode run FFmpeg to an Ogg/Opus stream and unwrap its
// packets into that format. FrameReader reads the frames back and
// StreamToVoice paces them into a voice connection under a Control.
package opus
