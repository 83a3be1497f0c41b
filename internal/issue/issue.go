// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	NoEntryPointId Id = iota + 1
	ArchiveExtractionFailedId
	LibraryLoadFailedId
	RuntimeInitFailedId
	ConfigLoadFailedId
	ResultDeliveryFailedId
	InvalidArgumentsId
)

type (
	// Id identifies a catalog entry.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry: Markdown guidance plus reference links.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the entry with the named glamour style ("dark", "light",
// "notty", or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	noEntryPointIssue = &Issue{
		id: NoEntryPointId,
		mdMsg: `
# No entry point given!

bootrunner needs to know which library the runtime should execute.

## Things you can try:
- Pass the entry point as an argument:
~~~
$ bootrunner run -e entrypoint:libname=<name.dll>
~~~

- Or set a default in your config file:
~~~cue
entry_point: "Tests.dll"
~~~

- Or through the environment:
~~~
$ BOOTRUNNER_ENTRY_POINT=Tests.dll bootrunner run
~~~`,
	}

	archiveExtractionFailedIssue = &Issue{
		id: ArchiveExtractionFailedId,
		mdMsg: `
# Asset archive could not be extracted!

The archive bundled with the application could not be deployed into the files
directory. With the ` + "`fatal`" + ` extraction policy the run stops here.

## Things you can try:
- Check that the archive exists and is a zip, tar.gz or tar.zst file:
~~~
$ bootrunner config show
~~~

- Make sure the files directory is writable
- Rebuild the archive; entries must not point outside the archive root
- Switch to the ` + "`soft`" + ` policy to run with a partial deployment:
~~~
$ bootrunner run --extraction-policy soft ...
~~~`,
	}

	libraryLoadFailedIssue = &Issue{
		id: LibraryLoadFailedId,
		mdMsg: `
# Runtime library could not be loaded!

The native bridge loads a shared library exporting the bootrunner entry points:

- ` + "`bootrunner_set_env`" + `
- ` + "`bootrunner_init_runtime`" + `
- ` + "`bootrunner_exec_entry_point`" + `
- ` + "`bootrunner_free_native_resources`" + `

## Things you can try:
- Point bootrunner at the library explicitly:
~~~
$ bootrunner run --library /path/to/libbootrunner.so ...
~~~

- Check the library architecture matches this binary
- Use the virtual bridge to run shell entry points without a library:
~~~
$ bootrunner run --bridge virtual ...
~~~`,
	}

	runtimeInitFailedIssue = &Issue{
		id: RuntimeInitFailedId,
		mdMsg: `
# Runtime initialization failed!

The runtime reported a non-zero status while starting. The entry point was not
executed and no result bundle was produced; the exit code is the status.

## Things you can try:
- Check that the entry point exists in the files directory
- Run again with debug logging to see what was extracted:
~~~
$ bootrunner run --log-level debug ...
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Check the file for syntax errors (CUE or TOML)
- Compare it with a freshly generated one:
~~~
$ bootrunner config init --force --dir /tmp/bootrunner
~~~

- Show which file is being used:
~~~
$ bootrunner config path
~~~`,
	}

	resultDeliveryFailedIssue = &Issue{
		id: ResultDeliveryFailedId,
		mdMsg: `
# Result bundle could not be written!

The entry point finished but its result bundle could not be delivered.

## Things you can try:
- Check that the ` + "`--output`" + ` file location is writable
- Write to standard output by leaving ` + "`--output`" + ` empty`,
	}

	invalidArgumentsIssue = &Issue{
		id: InvalidArgumentsId,
		mdMsg: `
# Invalid arguments!

Arguments are key/value pairs:

- ` + "`env:<NAME>=<value>`" + ` sets an environment variable
- ` + "`entrypoint:libname=<name>`" + ` selects the entry point
- anything else is passed to the entry point

## Things you can try:
- Pass each pair as its own flag:
~~~
$ bootrunner run -e env:LANG=C -e entrypoint:libname=Tests.dll -e filter=smoke
~~~

- Or put them into a JSON object:
~~~
$ bootrunner run --args-file args.json
~~~`,
	}

	issues = map[Id]*Issue{
		noEntryPointIssue.Id():            noEntryPointIssue,
		archiveExtractionFailedIssue.Id(): archiveExtractionFailedIssue,
		libraryLoadFailedIssue.Id():       libraryLoadFailedIssue,
		runtimeInitFailedIssue.Id():       runtimeInitFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		resultDeliveryFailedIssue.Id():    resultDeliveryFailedIssue,
		invalidArgumentsIssue.Id():        invalidArgumentsIssue,
	}
)

// Values returns every catalog entry, ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

func Get(id Id) *Issue {
	return issues[id]
}
