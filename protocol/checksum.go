package protocol

// CalculateFCS computes the MT frame check sequence: the XOR of every byte
// from LEN through the end of DATA (SOF excluded).
func CalculateFCS(data []byte) byte {
	var fcs byte
	for _, b := range data {
		fcs ^= b
	}
	return fcs
}
