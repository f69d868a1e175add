/** Copyright 2020-2023 Alibaba Group Holding Limited.

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

package local

import (
	"io"

	"github.com/pkg/errors"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// Image describes a set of objects to preload, in JSON:
//
//	{"objects": [
//	  {"name": "root", "units": 2, "prot": "rw",
//	   "exts": [{"tag": 1, "value": 4096}],
//	   "fot": [{"target": "leaf"}, {"resolver": 7, "values": [1, 2]}]},
//	  {"name": "leaf", "data": "hello", "immutable": true}
//	]}
type Image struct {
	Objects []ImageObject `json:"objects"`
}

type ImageObject struct {
	Name      string          `json:"name"`
	Units     uint32          `json:"units,omitempty"`
	Prot      string          `json:"prot,omitempty"`
	Lifetime  string          `json:"lifetime,omitempty"`
	Kuid      *types.ObjID    `json:"kuid,omitempty"`
	NoNonce   bool            `json:"no_nonce,omitempty"`
	Immutable bool            `json:"immutable,omitempty"`
	Size      *uint64         `json:"size,omitempty"`
	Data      string          `json:"data,omitempty"`
	Exts      []ImageExt      `json:"exts,omitempty"`
	Fot       []ImageFotEntry `json:"fot,omitempty"`
}

type ImageExt struct {
	Tag   uint64 `json:"tag"`
	Value uint64 `json:"value"`
}

// ImageFotEntry points either at another object of the image by name, at
// an explicit id, or at a resolver.
type ImageFotEntry struct {
	Target   string       `json:"target,omitempty"`
	ID       *types.ObjID `json:"id,omitempty"`
	Resolver uint64       `json:"resolver,omitempty"`
	Values   [2]uint64    `json:"values,omitempty"`
	Deleted  bool         `json:"deleted,omitempty"`
}

func (o *ImageObject) createSpec() (types.ObjectCreate, error) {
	spec := types.DefaultObjectCreate()
	if o.Prot != "" {
		flags, ok := types.ParseMapFlags(o.Prot)
		if !ok || flags.Protections().MapFlags() != flags {
			return spec, errors.Errorf("object %q: bad protections %q", o.Name, o.Prot)
		}
		spec = spec.WithDefProt(flags.Protections())
	}
	switch o.Lifetime {
	case "", "volatile":
	case "persistent":
		spec = spec.WithLifetime(types.LifetimePersistent)
	default:
		return spec, errors.Errorf("object %q: unknown lifetime %q", o.Name, o.Lifetime)
	}
	if o.Kuid != nil {
		spec = spec.WithKuid(*o.Kuid)
	}
	if o.NoNonce {
		spec = spec.WithFlags(types.CreateNoNonce)
	}
	return spec, nil
}

// LoadImage creates the objects described by the JSON image read from rd
// and returns their ids by name.
func (r *Runtime) LoadImage(rd io.Reader) (map[string]types.ObjID, error) {
	var img Image
	if err := common.ParseJson(rd, &img); err != nil {
		return nil, errors.Wrap(err, "failed to parse object image")
	}

	ids := make(map[string]types.ObjID, len(img.Objects))
	for i := range img.Objects {
		o := &img.Objects[i]
		if o.Name == "" {
			return nil, errors.Errorf("object #%d has no name", i)
		}
		if _, ok := ids[o.Name]; ok {
			return nil, errors.Errorf("duplicate object name %q", o.Name)
		}
		spec, err := o.createSpec()
		if err != nil {
			return nil, err
		}
		res := r.CreateObject(common.WriteCreateRequest(spec, o.Units))
		if err := res.Err.Result(); err != nil {
			return nil, errors.Wrapf(err, "failed to create object %q", o.Name)
		}
		ids[o.Name] = res.Val
	}

	for i := range img.Objects {
		if err := r.fillObject(&img.Objects[i], ids); err != nil {
			return nil, err
		}
	}
	r.log.Info("loaded object image", "objects", len(ids))
	return ids, nil
}

func (r *Runtime) fillObject(o *ImageObject, ids map[string]types.ObjID) error {
	id := ids[o.Name]
	if o.Data != "" {
		if err := r.WriteData(id, 0, []byte(o.Data)); err != nil {
			return errors.Wrapf(err, "object %q", o.Name)
		}
	}
	if o.Size != nil {
		if err := r.SetSize(id, *o.Size); err != nil {
			return errors.Wrapf(err, "object %q", o.Name)
		}
	}
	for _, ext := range o.Exts {
		if err := r.AddMetaExt(id, types.MetaExt{Tag: types.MetaExtTag(ext.Tag), Value: ext.Value}); err != nil {
			return errors.Wrapf(err, "object %q", o.Name)
		}
	}

	for j, fe := range o.Fot {
		var entry types.FotEntry
		switch {
		case fe.Resolver != 0:
			entry = types.NewResolverFotEntry(fe.Resolver, fe.Values)
		case fe.ID != nil:
			entry = types.NewFotEntry(*fe.ID)
		case fe.Target != "":
			target, ok := ids[fe.Target]
			if !ok {
				return errors.Errorf("object %q: FOT entry %d names unknown object %q", o.Name, j, fe.Target)
			}
			entry = types.NewFotEntry(target)
		default:
			return errors.Errorf("object %q: FOT entry %d has no target", o.Name, j)
		}
		if err := r.appendFot(id, entry, fe.Deleted); err != nil {
			return errors.Wrapf(err, "object %q", o.Name)
		}
	}

	if o.Immutable {
		return r.SetImmutable(id)
	}
	return nil
}

func (r *Runtime) appendFot(id types.ObjID, entry types.FotEntry, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.lookup(id)
	if err != nil {
		return err
	}
	idx, terr := insertFot(obj, entry)
	if terr != nil {
		return errors.Wrapf(terr, "FOT of %s", id)
	}
	if deleted {
		obj.fotSlot(idx).MarkDeleted()
	}
	return nil
}
