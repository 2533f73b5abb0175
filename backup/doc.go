// Package backup reads and writes the artifacts of radio maintenance: raw
// firmware images and NVRAM backup documents.
//
// A firmware image is the flash contents with no header. An NVRAM backup is
// a JSON (or YAML) document with two mappings of item name to hex value:
//
//	{
//	    "nwk":  {"EXTADDR": "0123456789abcdef", "PANID": "3412"},
//	    "osal": {"TCLK_TABLE": "..."}
//	}
//
// Entries keep the order they have in the document.
package backup
