package session

import "replicore/protocol"

// EncodeConnect/DecodeConnect and EncodeServerMessage/DecodeServerMessage
// frame the handshake structs for transmission on ChannelServerMessage.
// The handshake is small, infrequent, and already reliable, so it rides
// protocol's gob envelope directly rather than UpdateMessage's compression
// path.

// EncodeConnect serializes a client's opening handshake request.
func EncodeConnect(c Connect) ([]byte, error) { return protocol.EncodeGob(c) }

// DecodeConnect reverses EncodeConnect.
func DecodeConnect(data []byte) (Connect, error) {
	var c Connect
	err := protocol.DecodeGob(data, &c)
	return c, err
}

// EncodeServerMessage serializes the server's handshake response.
func EncodeServerMessage(m ServerMessage) ([]byte, error) { return protocol.EncodeGob(m) }

// DecodeServerMessage reverses EncodeServerMessage.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var m ServerMessage
	err := protocol.DecodeGob(data, &m)
	return m, err
}
