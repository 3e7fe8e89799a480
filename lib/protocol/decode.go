// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// UnmarshalFunc decodes raw bytes into v. Viewers pass json.Unmarshal
// or codec.Unmarshal depending on their transport.
type UnmarshalFunc func(data []byte, v any) error

// Decode reads the type discriminator from a raw frame and unmarshals
// it into the concrete message type. Unknown discriminators are an
// error; callers on the viewer side typically log and skip them.
func Decode(data []byte, unmarshal UnmarshalFunc) (Message, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("reading message type: %w", err)
	}

	var message Message
	switch header.Type {
	case TypeInit:
		message = &Init{}
	case TypeMachineAdd:
		message = &MachineAdd{}
	case TypeSessionAdd:
		message = &SessionAdd{}
	case TypeSessionUpdate:
		message = &SessionUpdate{}
	case TypeSessionActive:
		message = &SessionActive{}
	case TypeSessionThinking:
		message = &SessionThinking{}
	case TypeSessionWaiting:
		message = &SessionWaiting{}
	case TypeTokenUpdate:
		message = &TokenUpdate{}
	case TypeFileInteraction:
		message = &FileInteraction{}
	case TypeFileRemove:
		message = &FileRemove{}
	case TypeWebInteraction:
		message = &WebInteraction{}
	case TypeTaskInteraction:
		message = &TaskInteraction{}
	case TypeTerminalInteraction:
		message = &TerminalInteraction{}
	case TypeTerminalRemove:
		message = &TerminalRemove{}
	case TypeFolderRemove:
		message = &FolderRemove{}
	case TypeSessionRemove:
		message = &SessionRemove{}
	case TypeActivityPulse:
		message = &ActivityPulse{}
	case TypeHeartbeat:
		message = &Heartbeat{}
	default:
		return nil, fmt.Errorf("unknown message type %q", header.Type)
	}

	if err := unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", header.Type, err)
	}
	return message, nil
}
