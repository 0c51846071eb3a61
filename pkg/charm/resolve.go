package charm

import "flag"

// Root returns the topmost Spec in this command's parent chain.
func (s *Spec) Root() *Spec {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// parseFlags parses args against flags and returns the left-over,
// non-flag arguments.  A "-h"/"-help" request is turned into NeedHelp
// so the caller can fall back to the help system instead of the
// FlagSet's own usage output.
func parseFlags(flags *flag.FlagSet, args []string) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, NeedHelp
		}
		return nil, err
	}
	return flags.Args(), nil
}

// vflagSet reports whether flags has a boolean "v" flag and it is set.
func vflagSet(flags *flag.FlagSet) bool {
	f := flags.Lookup("v")
	return f != nil && f.Value.String() == "true"
}

// parse walks spec's command tree following args, creating an instance
// and parsing its flags at each level, until it runs out of args or
// hits an arg that doesn't name a sub-command.  It returns the resolved
// path, the left-over args for the path's leaf command, whether a "-v"
// flag was set anywhere along the path, and any error encountered.
func parse(spec *Spec, args []string, parent Command) (path, []string, bool, error) {
	inst, err := newInstance(parent, spec)
	if err != nil {
		return nil, nil, false, err
	}
	rest, err := parseFlags(inst.flags, args)
	if err != nil {
		return nil, nil, false, err
	}
	showHidden := vflagSet(inst.flags)
	p := path{inst}
	for len(rest) > 0 {
		child := spec.lookupSub(rest[0])
		if child == nil {
			break
		}
		spec = child
		childInst, err := newInstance(inst.command, spec)
		if err != nil {
			return nil, nil, false, err
		}
		rest, err = parseFlags(childInst.flags, rest[1:])
		if err != nil {
			return nil, nil, false, err
		}
		if vflagSet(childInst.flags) {
			showHidden = true
		}
		p = append(p, childInst)
		inst = childInst
	}
	return p, rest, showHidden, nil
}
