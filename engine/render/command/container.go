package command

import (
	"github.com/halcyon3d/halcyon-go/engine/render/graph"
)

// List is an ordered container of commands. Executing the list executes each
// child in declared order; chain order is the only ordering guarantee the
// pipeline makes.
type List struct {
	name     string
	commands []Command
}

var _ Command = &List{}
var _ Finder = &List{}

// NewList creates an ordered command list.
//
// Parameters:
//   - name: the container's name
//   - commands: the initial children, in execution order
//
// Returns:
//   - *List: the new list
func NewList(name string, commands ...Command) *List {
	return &List{
		name:     name,
		commands: commands,
	}
}

// Append adds commands to the end of the list.
//
// Parameters:
//   - commands: the commands to append, in execution order
func (l *List) Append(commands ...Command) {
	l.commands = append(l.commands, commands...)
}

// Commands returns the children in execution order.
//
// Returns:
//   - []Command: the child commands
func (l *List) Commands() []Command {
	return l.commands
}

func (l *List) Name() string {
	return l.name
}

func (l *List) AllocateContainerResources(instance Instance) {
	for _, cmd := range l.commands {
		cmd.AllocateContainerResources(instance)
	}
}

func (l *List) Execute(instance Instance) {
	for _, cmd := range l.commands {
		cmd.Execute(instance)
	}
}

func (l *List) ReleaseContainerResources(instance Instance) {
	for _, cmd := range l.commands {
		cmd.ReleaseContainerResources(instance)
	}
}

func (l *List) DescribePass(instance Instance) []graph.Pass {
	var passes []graph.Pass
	for _, cmd := range l.commands {
		passes = append(passes, cmd.DescribePass(instance)...)
	}
	return passes
}

func (l *List) Find(name string) Command {
	for _, cmd := range l.commands {
		if found := Find(cmd, name); found != nil {
			return found
		}
	}
	return nil
}

// If is a conditional container: each frame it evaluates its condition and
// executes either the then-branch or the else-branch. Allocate and Release
// always fan out to both branches, since the condition may flip between
// frames while the surface lives on.
type If struct {
	name      string
	condition func(instance Instance) bool
	then      Command
	otherwise Command
}

var _ Command = &If{}
var _ Finder = &If{}

// NewIf creates a conditional container. Either branch may be nil.
//
// Parameters:
//   - name: the container's name
//   - condition: evaluated each frame against the executing instance
//   - then: executed when the condition holds
//   - otherwise: executed when the condition does not hold
//
// Returns:
//   - *If: the new conditional
func NewIf(name string, condition func(instance Instance) bool, then, otherwise Command) *If {
	if condition == nil {
		panic("command: If container requires a condition")
	}
	return &If{
		name:      name,
		condition: condition,
		then:      then,
		otherwise: otherwise,
	}
}

func (c *If) Name() string {
	return c.name
}

func (c *If) AllocateContainerResources(instance Instance) {
	if c.then != nil {
		c.then.AllocateContainerResources(instance)
	}
	if c.otherwise != nil {
		c.otherwise.AllocateContainerResources(instance)
	}
}

func (c *If) Execute(instance Instance) {
	branch := c.branch(instance)
	if branch != nil {
		branch.Execute(instance)
	}
}

func (c *If) ReleaseContainerResources(instance Instance) {
	if c.then != nil {
		c.then.ReleaseContainerResources(instance)
	}
	if c.otherwise != nil {
		c.otherwise.ReleaseContainerResources(instance)
	}
}

func (c *If) DescribePass(instance Instance) []graph.Pass {
	branch := c.branch(instance)
	if branch == nil {
		return nil
	}
	return branch.DescribePass(instance)
}

// Find recurses into both branches regardless of the current condition value,
// since the target may live on the branch not taken this frame.
func (c *If) Find(name string) Command {
	if found := Find(c.then, name); found != nil {
		return found
	}
	return Find(c.otherwise, name)
}

func (c *If) branch(instance Instance) Command {
	if c.condition(instance) {
		return c.then
	}
	return c.otherwise
}

// Switch is a multi-way container: each frame it evaluates its selector and
// executes the matching case, or the default when no case matches.
type Switch struct {
	name     string
	selector func(instance Instance) string
	cases    map[string]Command
	fallback Command
}

var _ Command = &Switch{}
var _ Finder = &Switch{}

// NewSwitch creates a multi-way container. The default may be nil.
//
// Parameters:
//   - name: the container's name
//   - selector: evaluated each frame to pick a case key
//   - cases: the case map
//   - fallback: executed when the selector matches no case
//
// Returns:
//   - *Switch: the new switch
func NewSwitch(name string, selector func(instance Instance) string, cases map[string]Command, fallback Command) *Switch {
	if selector == nil {
		panic("command: Switch container requires a selector")
	}
	return &Switch{
		name:     name,
		selector: selector,
		cases:    cases,
		fallback: fallback,
	}
}

func (s *Switch) Name() string {
	return s.name
}

func (s *Switch) AllocateContainerResources(instance Instance) {
	for _, cmd := range s.cases {
		cmd.AllocateContainerResources(instance)
	}
	if s.fallback != nil {
		s.fallback.AllocateContainerResources(instance)
	}
}

func (s *Switch) Execute(instance Instance) {
	branch := s.branch(instance)
	if branch != nil {
		branch.Execute(instance)
	}
}

func (s *Switch) ReleaseContainerResources(instance Instance) {
	for _, cmd := range s.cases {
		cmd.ReleaseContainerResources(instance)
	}
	if s.fallback != nil {
		s.fallback.ReleaseContainerResources(instance)
	}
}

func (s *Switch) DescribePass(instance Instance) []graph.Pass {
	branch := s.branch(instance)
	if branch == nil {
		return nil
	}
	return branch.DescribePass(instance)
}

// Find recurses into every case and the default, not just the currently
// selected branch.
func (s *Switch) Find(name string) Command {
	for _, cmd := range s.cases {
		if found := Find(cmd, name); found != nil {
			return found
		}
	}
	return Find(s.fallback, name)
}

func (s *Switch) branch(instance Instance) Command {
	if cmd, ok := s.cases[s.selector(instance)]; ok {
		return cmd
	}
	return s.fallback
}
