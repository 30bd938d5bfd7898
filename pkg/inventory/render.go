/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")

	errMarshal = errors.New("marshalling inventory")
	errWrite   = errors.New("writing inventory")
)

// ParseFormat returns the Format named by s. The empty string selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", errors.Join(fmt.Errorf("format=%q", s), ErrUnknownFormat)
	}
}

// Marshal encodes v, usually a *Document or the result of Document.HostVarsFor.
func Marshal(v any, format Format) ([]byte, error) {
	var (
		b   []byte
		err error
	)

	switch format {
	case "", FormatJSON:
		b, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			b = append(b, '\n')
		}
	case FormatYAML:
		// sigs.k8s.io/yaml goes through encoding/json, so the custom marshalers apply.
		b, err = yaml.Marshal(v)
	default:
		return nil, errors.Join(fmt.Errorf("format=%q", format), ErrUnknownFormat)
	}

	if err != nil {
		return nil, errors.Join(err, errMarshal)
	}

	return b, nil
}

// Render writes v to w in the given format.
func Render(w io.Writer, v any, format Format) error {
	b, err := Marshal(v, format)
	if err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		return errors.Join(err, errWrite)
	}

	return nil
}
