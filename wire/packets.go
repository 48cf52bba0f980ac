package wire

import "sort"

// MarshalHelloRequest/UnmarshalHelloRequest etc. follow the same
// "Writer/Reader in fixed field order" shape keeper/zkwire uses for
// its Stat/ACL encodings, applied here to this protocol's packet
// bodies instead of ZK's jute records.

func MarshalHelloRequest(h HelloRequest) []byte {
	w := NewWriter()
	w.WriteString(h.ClientName)
	w.WriteUvarint(h.ClientVersionMajor)
	w.WriteUvarint(h.ClientVersionMinor)
	w.WriteUvarint(h.ClientVersionPatch)
	w.WriteUvarint(h.ProtocolVersion)
	w.WriteString(h.Database)
	w.WriteString(h.User)
	w.WriteString(h.Password)
	return w.Bytes()
}

func UnmarshalHelloRequest(buf []byte) (HelloRequest, error) {
	r := NewReader(buf)
	var h HelloRequest
	var err error
	if h.ClientName, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.ClientVersionMajor, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.ClientVersionMinor, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.ClientVersionPatch, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.ProtocolVersion, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.Database, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.User, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.Password, err = r.ReadString(); err != nil {
		return h, err
	}
	return h, nil
}

func MarshalHelloResponse(h HelloResponse) []byte {
	w := NewWriter()
	w.WriteString(h.ServerName)
	w.WriteUvarint(h.VersionMajor)
	w.WriteUvarint(h.VersionMinor)
	w.WriteUvarint(h.VersionPatch)
	w.WriteUvarint(h.Revision)
	w.WriteString(h.Timezone)
	return w.Bytes()
}

func UnmarshalHelloResponse(buf []byte) (HelloResponse, error) {
	r := NewReader(buf)
	var h HelloResponse
	var err error
	if h.ServerName, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.VersionMajor, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.VersionMinor, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.VersionPatch, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.Revision, err = r.ReadUvarint(); err != nil {
		return h, err
	}
	if h.Timezone, err = r.ReadString(); err != nil {
		return h, err
	}
	return h, nil
}

func MarshalQueryRequest(q QueryRequest) []byte {
	w := NewWriter()
	w.WriteString(q.QueryID)
	w.WriteString(q.Query)
	keys := make([]string, 0, len(q.Settings))
	for k := range q.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		w.WriteString(k)
		w.WriteString(q.Settings[k])
	}
	return w.Bytes()
}

func UnmarshalQueryRequest(buf []byte) (QueryRequest, error) {
	r := NewReader(buf)
	var q QueryRequest
	var err error
	if q.QueryID, err = r.ReadString(); err != nil {
		return q, err
	}
	if q.Query, err = r.ReadString(); err != nil {
		return q, err
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return q, err
	}
	if n > 0 {
		q.Settings = make(map[string]string, n)
	}
	for i := uint64(0); i < n; i++ {
		k, err := r.ReadString()
		if err != nil {
			return q, err
		}
		v, err := r.ReadString()
		if err != nil {
			return q, err
		}
		q.Settings[k] = v
	}
	return q, nil
}

func MarshalProgress(p Progress) []byte {
	w := NewWriter()
	w.WriteUvarint(p.ReadRows)
	w.WriteUvarint(p.ReadBytes)
	w.WriteUvarint(p.TotalRowsToRead)
	return w.Bytes()
}

func UnmarshalProgress(buf []byte) (Progress, error) {
	r := NewReader(buf)
	var p Progress
	var err error
	if p.ReadRows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.ReadBytes, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.TotalRowsToRead, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	return p, nil
}

func MarshalException(e Exception) []byte {
	w := NewWriter()
	w.WriteVarint(int64(e.Code))
	w.WriteString(e.Name)
	w.WriteString(e.Message)
	w.WriteString(e.StackTrace)
	return w.Bytes()
}

func UnmarshalException(buf []byte) (Exception, error) {
	r := NewReader(buf)
	var e Exception
	code, err := r.ReadVarint()
	if err != nil {
		return e, err
	}
	e.Code = int32(code)
	if e.Name, err = r.ReadString(); err != nil {
		return e, err
	}
	if e.Message, err = r.ReadString(); err != nil {
		return e, err
	}
	if e.StackTrace, err = r.ReadString(); err != nil {
		return e, err
	}
	return e, nil
}

func MarshalProfileInfo(p ProfileInfo) []byte {
	w := NewWriter()
	w.WriteUvarint(p.Rows)
	w.WriteUvarint(p.Blocks)
	w.WriteUvarint(p.Bytes)
	w.WriteBool(p.AppliedLimit)
	w.WriteUvarint(p.RowsBeforeLimit)
	return w.Bytes()
}

func UnmarshalProfileInfo(buf []byte) (ProfileInfo, error) {
	r := NewReader(buf)
	var p ProfileInfo
	var err error
	if p.Rows, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.Blocks, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.Bytes, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	if p.AppliedLimit, err = r.ReadBool(); err != nil {
		return p, err
	}
	if p.RowsBeforeLimit, err = r.ReadUvarint(); err != nil {
		return p, err
	}
	return p, nil
}

func MarshalPartUUIDs(p PartUUIDs) []byte {
	w := NewWriter()
	w.WriteUvarint(uint64(len(p.UUIDs)))
	for _, u := range p.UUIDs {
		w.WriteString(u)
	}
	return w.Bytes()
}

func UnmarshalPartUUIDs(buf []byte) (PartUUIDs, error) {
	r := NewReader(buf)
	n, err := r.ReadUvarint()
	if err != nil {
		return PartUUIDs{}, err
	}
	uuids := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		u, err := r.ReadString()
		if err != nil {
			return PartUUIDs{}, err
		}
		uuids = append(uuids, u)
	}
	return PartUUIDs{UUIDs: uuids}, nil
}
