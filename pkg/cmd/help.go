package cmd

const rootLong = `portpanel - web server & port forwarding control panel

A terminal UI for starting, stopping and checking the local web server
and for managing ad-hoc TCP port forwards backed by socat.

The panel asks for your sudo password once at startup. It is kept in
memory for the session only and is never logged or written to disk.

Interactive Mode:
  Run without any command to start the TUI where you can:
  - Press 'a' to add a forwarding rule (listen port -> host:port)
  - Use Space to activate/deactivate the selected rule
  - Press 'x' to remove a rule and 'o' to open it in the browser
  - Press 'y' to copy the rule's local URL to the clipboard
  - Press 's', 't' and 'c' to start, stop and check the web server
  - Press 'h' to write an HTML page into the document root`

const rootExample = `  portpanel                                Start interactive TUI
  portpanel --config ./panel.yaml          Start with an extra config file
  portpanel service status                 Check the web server from the shell
  portpanel history -n 50                  Show the last 50 journal entries
  portpanel prune --older-than 168h -y     Drop journal entries older than a week
  portpanel page --name about.html --from ./about.html`
